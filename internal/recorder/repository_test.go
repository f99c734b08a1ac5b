package recorder_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) recorder.Config {
	t.Helper()
	cfg := recorder.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "telemetry.db")
	cfg.BatchSize = 2
	cfg.BatchTimeout = 60
	return cfg
}

func row(ts time.Time, power float64) *recorder.Row {
	return &recorder.Row{
		Timestamp:          ts,
		PowerWatts:         power,
		TemperatureCelsius: 60,
		UtilizationPercent: 80,
		MemoryUsedMB:       4096,
		IntensityGPerKWh:   400,
		EmissionsTotalG:    1.5,
		JobRunning:         true,
	}
}

func countRows(t *testing.T, dbPath string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM telemetry").Scan(&count))
	return count
}

func TestDisabledRecorderIsNoop(t *testing.T) {
	cfg := recorder.DefaultConfig()
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), row(time.Now(), 100)))
	require.NoError(t, rec.Close())
}

func TestEnabledWithoutPathIsInvalid(t *testing.T) {
	cfg := recorder.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""

	_, err := recorder.NewService(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder_invalid_db_path")
}

func TestRecordFlushesAtBatchSize(t *testing.T) {
	cfg := testConfig(t)
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)
	require.NoError(t, rec.Record(context.Background(), row(base, 100)))
	require.NoError(t, rec.Record(context.Background(), row(base.Add(time.Second), 110)))
	require.NoError(t, rec.Close())

	assert.Equal(t, 2, countRows(t, cfg.DBPath))
}

func TestCloseFlushesPartialBatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), row(time.Unix(1700000000, 0), 100)))
	require.NoError(t, rec.Close())

	assert.Equal(t, 1, countRows(t, cfg.DBPath))
}

func TestRecordNilRow(t *testing.T) {
	cfg := testConfig(t)
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder_invalid_row")
}

func TestRecordCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rec.Record(ctx, row(time.Now(), 100))
	require.Error(t, err)
}

func TestRecordAfterCloseFailsWithCode(t *testing.T) {
	cfg := testConfig(t)
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	base := time.Unix(1700000000, 0)
	require.NoError(t, rec.Record(context.Background(), row(base, 100)))

	// Second row hits the batch size; the flush against the closed
	// database must surface as a record failure.
	err = rec.Record(context.Background(), row(base.Add(time.Second), 110))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder_record_failed")
}

func TestSameTimestampUpserts(t *testing.T) {
	cfg := testConfig(t)
	rec, err := recorder.NewService(cfg)
	require.NoError(t, err)

	ts := time.Unix(1700000000, 0)
	require.NoError(t, rec.Record(context.Background(), row(ts, 100)))
	require.NoError(t, rec.Record(context.Background(), row(ts, 200)))
	require.NoError(t, rec.Close())

	assert.Equal(t, 1, countRows(t, cfg.DBPath))
}
