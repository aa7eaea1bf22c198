package stormglass

import (
	"encoding/json"
	"fmt"
	"time"
)

// SourceReading maps a provider source name (e.g. "sg", "noaa") to the raw
// numeric-or-null value that source reported for one parameter at one hour.
type SourceReading map[string]*float64

// Hour is one hourly row of the provider's point response. The raw JSON is
// retained so archive artifacts can persist provider rows byte-for-byte.
type Hour struct {
	Time   time.Time
	Params map[string]SourceReading

	raw json.RawMessage
}

// pointResponse is the provider's weather point response envelope.
type pointResponse struct {
	Hours []Hour `json:"hours"`
}

// hourTimeLayouts are the timestamp formats the provider has been observed to
// emit. RFC3339 with a numeric offset is the documented form.
var hourTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON decodes an hourly row, keeping the original bytes alongside
// the parsed view. Non-object fields other than "time" are ignored rather
// than rejected; the provider occasionally adds scalar annotations.
func (h *Hour) UnmarshalJSON(data []byte) error {
	h.raw = append(json.RawMessage(nil), data...)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding hour row: %w", err)
	}

	h.Params = make(map[string]SourceReading, len(fields))
	for key, val := range fields {
		if key == "time" {
			var ts string
			if err := json.Unmarshal(val, &ts); err != nil {
				return fmt.Errorf("decoding hour timestamp: %w", err)
			}
			parsed, err := parseHourTime(ts)
			if err != nil {
				return err
			}
			h.Time = parsed
			continue
		}
		var reading SourceReading
		if err := json.Unmarshal(val, &reading); err != nil {
			continue
		}
		h.Params[key] = reading
	}
	return nil
}

// MarshalJSON re-emits the original provider bytes when available, so
// archived rows round-trip without loss.
func (h Hour) MarshalJSON() ([]byte, error) {
	if h.raw != nil {
		return h.raw, nil
	}
	out := make(map[string]any, len(h.Params)+1)
	out["time"] = h.Time.UTC().Format(time.RFC3339)
	for k, v := range h.Params {
		out[k] = v
	}
	return json.Marshal(out)
}

func parseHourTime(s string) (time.Time, error) {
	for _, layout := range hourTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized hour timestamp %q", s)
}

// ArchiveParameters is the full parameter list requested during historical
// backfill. Serving requests use the narrower sequence-channel list; the
// archive keeps everything the provider offers so future models can train on
// parameters the current ones ignore.
var ArchiveParameters = []string{
	"airTemperature", "cloudCover", "dewPointTemperature", "humidity",
	"pressure", "visibility",
	"gust", "windSpeed", "windDirection",
	"currentDirection", "currentSpeed",
	"seaLevel", "waterTemperature",
	"waveDirection", "waveHeight", "wavePeriod",
	"swellDirection", "swellHeight", "swellPeriod",
	"secondarySwellDirection", "secondarySwellHeight", "secondarySwellPeriod",
	"windWaveDirection", "windWaveHeight", "windWavePeriod",
	"precipitation", "rain",
}
