package observations_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hist-temps/internal/mocks"
	"hist-temps/internal/observations"
	"hist-temps/internal/sink"
	"hist-temps/pkg/fmi"
)

var (
	start = time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC)
	end   = start.Add(24 * time.Hour)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func intPtr(i int) *int { return &i }

func TestCollectFromSource(t *testing.T) {
	expected := []fmi.Datapoint{
		{Timestamp: start, Value: 12.3},
		{Timestamp: start.Add(time.Hour), Value: 11.8},
	}

	source := &mocks.Source{}
	source.On("Fetch", mock.Anything, start, end).Return(expected, nil)

	mgr := observations.NewManager(source, &mocks.Sink{}, discardLogger())
	points, err := mgr.Collect(context.Background(), observations.Request{Place: "Turku", Start: start, End: end})
	require.NoError(t, err)
	assert.Equal(t, expected, points)

	source.AssertExpectations(t)
}

func TestCollectRandom(t *testing.T) {
	source := &mocks.Source{}

	mgr := observations.NewManager(source, &mocks.Sink{}, discardLogger(),
		observations.WithRand(rand.New(rand.NewPCG(1, 1))))

	points, err := mgr.Collect(context.Background(), observations.Request{
		Place:       "Turku",
		Start:       start,
		End:         end,
		RandomCount: intPtr(5),
	})
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.Equal(t, start.Add(4*time.Hour), points[4].Timestamp)

	source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestCollectRandomZero(t *testing.T) {
	mgr := observations.NewManager(nil, &mocks.Sink{}, discardLogger())

	points, err := mgr.Collect(context.Background(), observations.Request{
		Start: start, End: end, RandomCount: intPtr(0),
	})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestCollectErrors(t *testing.T) {
	fetchErr := &fmi.ServiceStatusError{StatusCode: 503, Status: "503 Service Unavailable"}

	testCases := []struct {
		name     string
		req      observations.Request
		fetchErr error
		check    func(t *testing.T, err error)
	}{
		{
			name: "End_Before_Start",
			req:  observations.Request{Place: "Turku", Start: end, End: start},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, observations.ErrInvalidWindow))
			},
		},
		{
			name: "End_Before_Start_Random",
			req:  observations.Request{Start: end, End: start, RandomCount: intPtr(3)},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, observations.ErrInvalidWindow))
			},
		},
		{
			name: "Missing_Place",
			req:  observations.Request{Start: start, End: end},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, observations.ErrMissingPlace))
			},
		},
		{
			name:     "Source_Failure",
			req:      observations.Request{Place: "Turku", Start: start, End: end},
			fetchErr: fetchErr,
			check: func(t *testing.T, err error) {
				var statusErr *fmi.ServiceStatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, 503, statusErr.StatusCode)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := &mocks.Source{}
			source.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.fetchErr)

			mgr := observations.NewManager(source, &mocks.Sink{}, discardLogger())
			points, err := mgr.Collect(context.Background(), tc.req)
			assert.Nil(t, points)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestDeliver(t *testing.T) {
	points := []fmi.Datapoint{{Timestamp: start, Value: 12.3}}

	s := &mocks.Sink{}
	s.On("Write", mock.Anything, sink.Series{
		Place:       "Turku",
		Measurement: sink.MeasurementTemperature,
		Points:      points,
	}).Return(nil)

	mgr := observations.NewManager(nil, s, discardLogger())
	require.NoError(t, mgr.Deliver(context.Background(), observations.Request{Place: "Turku"}, points))

	s.AssertExpectations(t)
}

func TestDeliverFailureIsNotRetried(t *testing.T) {
	s := &mocks.Sink{}
	s.On("Write", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	mgr := observations.NewManager(nil, s, discardLogger())
	err := mgr.Deliver(context.Background(), observations.Request{Place: "Turku"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	s.AssertNumberOfCalls(t, "Write", 1)
}

func TestRun(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	points := []fmi.Datapoint{{Timestamp: start, Value: 12.3}}

	source := &mocks.Source{}
	source.On("Fetch", mock.Anything, start, end).Return(points, nil)

	s := &mocks.Sink{}
	s.On("Write", mock.Anything, mock.MatchedBy(func(series sink.Series) bool {
		return series.Place == "Turku" && len(series.Points) == 1
	})).Return(nil)

	mgr := observations.NewManager(source, s, logger)
	require.NoError(t, mgr.Run(context.Background(), observations.Request{Place: "Turku", Start: start, End: end}))

	source.AssertExpectations(t)
	s.AssertExpectations(t)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	runID := runIDOf(t, lines[0])
	for _, line := range lines {
		assert.Equal(t, runID, runIDOf(t, line), "every line of a run shares its id")
	}
}

func TestRunStopsOnCollectFailure(t *testing.T) {
	source := &mocks.Source{}
	source.On("Fetch", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &fmi.TransportError{Err: errors.New("dial tcp: no such host")})

	s := &mocks.Sink{}

	mgr := observations.NewManager(source, s, discardLogger())
	err := mgr.Run(context.Background(), observations.Request{Place: "Turku", Start: start, End: end})

	var transportErr *fmi.TransportError
	require.True(t, errors.As(err, &transportErr))
	s.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func runIDOf(t *testing.T, line string) string {
	t.Helper()

	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, "run_id=") {
			return strings.TrimPrefix(field, "run_id=")
		}
	}
	t.Fatalf("no run_id in log line %q", line)
	return ""
}
