package acquisition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swellcast/internal/stormglass"
	"swellcast/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type pinnedCall struct {
	credIndex int
	window    types.TimeWindow
}

// fakeClient scripts AttemptPinned outcomes per call and records the
// request sequence.
type fakeClient struct {
	poolSize    int
	calls       []pinnedCall
	errs        map[int]error // call index -> failure; nil entry means success
	attemptErr  error
	attemptData *stormglass.WindowData
}

func (f *fakeClient) PoolSize() int { return f.poolSize }

func (f *fakeClient) Attempt(_ context.Context, _ types.GeoPoint, _ types.TimeWindow, _ []string) (*stormglass.WindowData, error) {
	if f.attemptErr != nil {
		return nil, f.attemptErr
	}
	return f.attemptData, nil
}

func (f *fakeClient) AttemptPinned(_ context.Context, credIndex int, _ types.GeoPoint, window types.TimeWindow, _ []string) (*stormglass.WindowData, error) {
	n := len(f.calls)
	f.calls = append(f.calls, pinnedCall{credIndex: credIndex, window: window})
	if err, ok := f.errs[n]; ok {
		return nil, err
	}
	return windowData(window), nil
}

// windowData fabricates one raw row and one reconciled row per hour of the
// window.
func windowData(w types.TimeWindow) *stormglass.WindowData {
	hours := w.Hours()
	data := &stormglass.WindowData{}
	for i := 0; i < hours; i++ {
		ts := w.Start.Add(time.Duration(i) * time.Hour)
		data.Hours = append(data.Hours, stormglass.Hour{Time: ts})
		data.Series = append(data.Series, types.HourlyPoint{Time: ts, WaveHeight: 1.0})
	}
	return data
}

func collectPoint(t *testing.T) types.GeoPoint {
	t.Helper()
	p, err := types.NewGeoPoint(5.972, 80.426)
	require.NoError(t, err)
	return p
}

func TestFetchWindowDelegatesToClient(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	want := &stormglass.WindowData{Series: types.ObservationSeries{{Time: now}}}
	svc := NewService(&fakeClient{poolSize: 1, attemptData: want}, fixedClock{now}, nil, nil)

	series, err := svc.FetchWindow(context.Background(), collectPoint(t), types.ForecastHours)
	require.NoError(t, err)
	assert.Equal(t, want.Series, series)
}

func TestFetchWindowPropagatesFailure(t *testing.T) {
	exhausted := types.NewAppError(types.ErrCodeAcqExhausted, "all credentials exhausted", nil)
	svc := NewService(&fakeClient{poolSize: 1, attemptErr: exhausted}, fixedClock{time.Now()}, nil, nil)

	_, err := svc.FetchWindow(context.Background(), collectPoint(t), types.ForecastHours)
	assert.Equal(t, types.ErrCodeAcqExhausted, types.CodeOf(err))
}

// The headline backfill property: two credentials with a sub-budget of ten
// requests each, all succeeding with ten-day windows, collect exactly
// 20 requests x 10 days x 24 hours = 4800 rows before stopping.
func TestBackfillCollectsFullBudget(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	client := &fakeClient{poolSize: 2}
	svc := NewService(client, fixedClock{now}, nil, nil)

	result, err := svc.BackfillArchive(context.Background(), collectPoint(t), BackfillOptions{Spot: "Weligama"})
	require.NoError(t, err)

	assert.Equal(t, 20, result.RequestsUsed)
	assert.Len(t, result.Hours, 4800)
	assert.Len(t, result.Series, 4800)
	require.Len(t, client.calls, 20)

	// First ten requests on credential 0, next ten on credential 1.
	for i, call := range client.calls {
		assert.Equal(t, i/10, call.credIndex, "request %d", i)
	}

	// Windows walk backward contiguously from midnight, ten days at a time.
	midnight := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	for i, call := range client.calls {
		wantEnd := midnight.AddDate(0, 0, -10*i)
		assert.Equal(t, wantEnd, call.window.End, "request %d end", i)
		assert.Equal(t, wantEnd.AddDate(0, 0, -10), call.window.Start, "request %d start", i)
	}

	// Rows accumulate time-ascending with the oldest window first.
	assert.Equal(t, midnight.AddDate(0, 0, -200), result.Hours[0].Time)
	assert.Equal(t, result.Hours[0].Time, result.Earliest)
	for i := 1; i < len(result.Hours); i++ {
		assert.True(t, result.Hours[i].Time.After(result.Hours[i-1].Time), "row %d out of order", i)
	}
}

// A quota failure mid-budget skips the rest of that credential's allocation
// and continues from the same window on the next credential.
func TestBackfillSkipsToNextCredentialOnQuota(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{
		poolSize: 2,
		errs: map[int]error{
			2: types.NewAppError(types.ErrCodeAcqAuthExhausted, "quota", nil),
		},
	}
	svc := NewService(client, fixedClock{now}, nil, nil)

	result, err := svc.BackfillArchive(context.Background(), collectPoint(t), BackfillOptions{})
	require.NoError(t, err)

	// Calls 0,1 on credential 0, failure on call 2, then ten calls on
	// credential 1: 12 successes total.
	assert.Equal(t, 12, result.RequestsUsed)
	require.Len(t, client.calls, 13)
	assert.Equal(t, 1, client.calls[3].credIndex)
	// The failed window is retried by the next credential, not skipped.
	assert.Equal(t, client.calls[2].window, client.calls[3].window)
}

func TestBackfillStopsOnEmptyHistory(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{
		poolSize: 2,
		errs: map[int]error{
			3: types.NewAppError(types.ErrCodeAcqEmpty, "no data", nil),
		},
	}
	svc := NewService(client, fixedClock{now}, nil, nil)

	result, err := svc.BackfillArchive(context.Background(), collectPoint(t), BackfillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.RequestsUsed)
	assert.Len(t, result.Hours, 3*240)
}

func TestBackfillFatalAborts(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{
		poolSize: 2,
		errs: map[int]error{
			0: types.NewAppError(types.ErrCodeAcqFatalParams, "bad params", nil),
		},
	}
	svc := NewService(client, fixedClock{now}, nil, nil)

	_, err := svc.BackfillArchive(context.Background(), collectPoint(t), BackfillOptions{})
	assert.Equal(t, types.ErrCodeAcqFatalParams, types.CodeOf(err))
}

func TestBackfillResumesFromGivenEnd(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	resume := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{poolSize: 1}
	svc := NewService(client, fixedClock{now}, nil, nil)

	_, err := svc.BackfillArchive(context.Background(), collectPoint(t), BackfillOptions{ResumeEnd: resume})
	require.NoError(t, err)
	assert.Equal(t, resume, client.calls[0].window.End)
}
