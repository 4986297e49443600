package tasks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hist-temps/internal/clock"
	"hist-temps/internal/sink"
	"hist-temps/pkg/fmi"
)

var now = time.Date(2022, 8, 2, 0, 41, 5, 0, time.UTC)

// isolate points every FMI and sink setting away from the host environment
func isolate(t *testing.T) {
	t.Helper()

	for _, name := range []string{
		"INFLUXDB_HOST", "INFLUXDB_ORG", "INFLUXDB_TOKEN", "HIST_TEMPS_SINK_KIND",
		"HIST_TEMPS_METRICS_PUSHGATEWAY", "HIST_TEMPS_FMI_HINTS", "HIST_TEMPS_LOG_FORMAT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("HIST_TEMPS_FMI_DUMP_PATH", filepath.Join(t.TempDir(), "dump.xml"))
	t.Setenv("HIST_TEMPS_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, logs bytes.Buffer
	cmd := NewRootCmd(&out, clock.NewMock(now))
	cmd.SetArgs(args)
	cmd.SetErr(&logs)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fixtureServer(t *testing.T) (*httptest.Server, *[]url.Values) {
	t.Helper()

	fixture, err := os.ReadFile("../../pkg/fmi/testdata/hourly_timevaluepair.xml")
	require.NoError(t, err)

	var queries []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		w.Write(fixture)
	}))
	t.Cleanup(server.Close)

	return server, &queries
}

func TestRandomToPrinter(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--random-count", "3", "--starttime", "2022-01-01T00:00:00Z")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Got data:", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2022-01-01T00:00:00Z\trandom\ttemperature\t"), lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "2022-01-01T02:00:00Z\trandom\ttemperature\t"), lines[3])
}

func TestFetchToPrinter(t *testing.T) {
	isolate(t)
	server, queries := fixtureServer(t)
	t.Setenv("HIST_TEMPS_FMI_BASE_URL", server.URL)

	out, err := execute(t, "-p", "Turku", "-s", "2022-08-01T00:00:00Z", "-e", "2022-08-01T04:00:00+03:00")
	require.NoError(t, err)

	assert.Equal(t, "Got data:\n\n"+
		"2022-08-01T00:00:00Z\tTurku\ttemperature\t12.3\n"+
		"2022-08-01T01:00:00Z\tTurku\ttemperature\t11.8\n"+
		"2022-08-01T03:00:00Z\tTurku\ttemperature\t10.9\n", out)

	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Equal(t, fmi.StoredQueryHourlyTVP, q.Get("storedquery_id"))
	assert.Equal(t, "2022-08-01T00:00:00Z", q.Get("starttime"))
	assert.Equal(t, "2022-08-01T01:00:00Z", q.Get("endtime"))
	assert.Equal(t, "Turku", q.Get("place"))

	dumped, err := os.ReadFile(os.Getenv("HIST_TEMPS_FMI_DUMP_PATH"))
	require.NoError(t, err)
	assert.Contains(t, string(dumped), "TA_PT1H_AVG")
}

func TestFetchDefaultWindow(t *testing.T) {
	isolate(t)
	server, queries := fixtureServer(t)
	t.Setenv("HIST_TEMPS_FMI_BASE_URL", server.URL)

	_, err := execute(t, "--place", "Turku")
	require.NoError(t, err)

	require.Len(t, *queries, 1)
	assert.Equal(t, "2022-08-01T00:00:00Z", (*queries)[0].Get("starttime"))
	assert.Equal(t, "2022-08-02T00:00:00Z", (*queries)[0].Get("endtime"))
}

func TestFetchToSQLite(t *testing.T) {
	isolate(t)
	server, _ := fixtureServer(t)
	t.Setenv("HIST_TEMPS_FMI_BASE_URL", server.URL)

	dbPath := filepath.Join(t.TempDir(), "temps.db")
	t.Setenv("HIST_TEMPS_SQLITE_PATH", dbPath)

	out, err := execute(t, "--place", "Turku", "--sink", "sqlite")
	require.NoError(t, err)
	assert.Empty(t, out)

	s, err := sink.NewSQLiteSink(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	points, err := s.Points(context.Background(), "Turku", sink.MeasurementTemperature)
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestServiceExceptionFailsRun(t *testing.T) {
	isolate(t)

	fixture, err := os.ReadFile("../../pkg/fmi/testdata/exception_report.xml")
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer server.Close()
	t.Setenv("HIST_TEMPS_FMI_BASE_URL", server.URL)

	out, err := execute(t, "--place", "Atlantis")
	require.Error(t, err)
	assert.Empty(t, out)

	var excErr *fmi.ServiceExceptionError
	require.ErrorAs(t, err, &excErr)
	assert.Equal(t, "OperationParsingFailed", excErr.Code)
}

func TestFlagErrors(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"Missing_Place", []string{}, "--place is required unless --random-count is given"},
		{"Invalid_Start", []string{"-p", "Turku", "-s", "yesterday"}, `invalid --starttime "yesterday"`},
		{"Invalid_End", []string{"-p", "Turku", "-e", "2022-08-01"}, `invalid --endtime "2022-08-01"`},
		{"End_Before_Start", []string{"--random-count", "2", "-s", "2022-08-02T00:00:00Z", "-e", "2022-08-01T00:00:00Z"}, "end time is before start time"},
		{"Negative_Random_Count", []string{"--random-count=-1"}, "--random-count must not be negative"},
		{"Influx_Without_Credentials", []string{"-w", "--random-count", "1"}, "missing required environment variables for influxdb sink"},
		{"Unknown_Sink", []string{"--sink", "kafka", "--random-count", "1"}, `invalid sink.kind "kafka"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)

			_, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd(&out, clock.NewMock(now))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "build date")
}

func TestSinkFlagBinding(t *testing.T) {
	var out bytes.Buffer
	require.NotPanics(t, func() { NewRootCmd(&out, clock.NewMock(now)) })

	cmd := NewRootCmd(&out, clock.NewMock(now))
	require.NotNil(t, cmd.Flags().Lookup("sink"))
}
