package acquisition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"swellcast/internal/stormglass"
	"swellcast/internal/types"
)

// ArchiveMetadata describes one collection run, embedded in the artifact so
// downstream training jobs can audit provenance without external state.
type ArchiveMetadata struct {
	Spot               string  `json:"spot"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	RequestsUsed       int     `json:"requestsUsed"`
	TotalHours         int     `json:"totalHours"`
	TotalDaysCollected int     `json:"totalDaysCollected"`
	DateCollected      string  `json:"dateCollected"`
	EarliestDataPoint  string  `json:"earliestDataPoint"`
}

// ArchiveDocument is the on-disk artifact: run metadata plus the raw hourly
// rows exactly as the provider returned them, time-ascending.
type ArchiveDocument struct {
	Metadata ArchiveMetadata   `json:"metadata"`
	Hours    []stormglass.Hour `json:"hours"`
}

// BuildArchive assembles the artifact for a completed backfill run.
func BuildArchive(spot string, point types.GeoPoint, result *BackfillResult, collectedAt time.Time) *ArchiveDocument {
	meta := ArchiveMetadata{
		Spot:               spot,
		Latitude:           point.Lat,
		Longitude:          point.Lng,
		RequestsUsed:       result.RequestsUsed,
		TotalHours:         len(result.Hours),
		TotalDaysCollected: len(result.Hours) / types.HoursPerDay,
		DateCollected:      collectedAt.UTC().Format(time.RFC3339),
	}
	if !result.Earliest.IsZero() {
		meta.EarliestDataPoint = result.Earliest.UTC().Format(time.RFC3339)
	}
	return &ArchiveDocument{Metadata: meta, Hours: result.Hours}
}

// WriteArchive serializes the document to dir as
// <spot>_archive_<yyyy-mm-dd>.json, optionally zstd-compressed with a .zst
// suffix. It returns the written path.
func WriteArchive(doc *ArchiveDocument, dir string, compress bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "create archive directory", err)
	}

	date := doc.Metadata.DateCollected
	if len(date) >= len(time.DateOnly) {
		date = date[:len(time.DateOnly)]
	}
	name := fmt.Sprintf("%s_archive_%s.json", slugify(doc.Metadata.Spot), date)
	if compress {
		name += ".zst"
	}
	path := filepath.Join(dir, name)

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "encode archive", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "create archive file", err)
	}
	defer f.Close()

	if compress {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return "", types.NewAppError(types.ErrCodeInternalUnexpected, "init zstd encoder", err)
		}
		if _, err := enc.Write(payload); err != nil {
			enc.Close()
			return "", types.NewAppError(types.ErrCodeInternalUnexpected, "write archive", err)
		}
		if err := enc.Close(); err != nil {
			return "", types.NewAppError(types.ErrCodeInternalUnexpected, "flush archive", err)
		}
	} else if _, err := f.Write(payload); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "write archive", err)
	}

	return path, nil
}

// LatestArchive returns the most recently written archive for the spot in
// dir, or "" when none exists. Archive names embed the collection date, so
// lexicographic order is chronological order.
func LatestArchive(dir, spot string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, slugify(spot)+"_archive_*.json*"))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "scan archive directory", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ResumePoint reads the newest archive for the spot and returns where its
// collection stopped, so a later run continues further back instead of
// re-fetching the same windows. A zero time means there is nothing to resume
// from.
func ResumePoint(dir, spot string) (time.Time, error) {
	path, err := LatestArchive(dir, spot)
	if err != nil || path == "" {
		return time.Time{}, err
	}
	doc, err := ReadArchive(path)
	if err != nil {
		return time.Time{}, err
	}
	if doc.Metadata.EarliestDataPoint == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, doc.Metadata.EarliestDataPoint)
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeInternalUnexpected, "parse archive resume point", err)
	}
	return ts, nil
}

// ReadArchive loads an artifact written by WriteArchive, transparently
// handling the compressed form.
func ReadArchive(path string) (*ArchiveDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "read archive file", err)
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "init zstd decoder", err)
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "decompress archive", err)
		}
	}
	var doc ArchiveDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "decode archive", err)
	}
	return &doc, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
