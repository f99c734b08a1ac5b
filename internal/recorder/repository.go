package recorder

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/errors"
	"codeberg.org/mutker/gpucarbon/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
    CREATE TABLE IF NOT EXISTS telemetry (
        timestamp        INTEGER PRIMARY KEY,
        power_watts      REAL NOT NULL,
        temperature      REAL NOT NULL,
        utilization      REAL NOT NULL,
        memory_used_mb   REAL NOT NULL,
        intensity        REAL NOT NULL,
        emissions_total  REAL NOT NULL,
        job_running      INTEGER NOT NULL CHECK (job_running IN (0, 1))
    )`

const insertRowSQL = `
    INSERT INTO telemetry (
        timestamp, power_watts, temperature, utilization,
        memory_used_mb, intensity, emissions_total, job_running
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(timestamp) DO UPDATE SET
        power_watts = excluded.power_watts,
        temperature = excluded.temperature,
        utilization = excluded.utilization,
        memory_used_mb = excluded.memory_used_mb,
        intensity = excluded.intensity,
        emissions_total = excluded.emissions_total,
        job_running = excluded.job_running`

type repository struct {
	db            *sql.DB
	cfg           Config
	mu            sync.Mutex
	buffer        []*Row
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

type noopRecorder struct{}

// NewService creates a Recorder. With recording disabled a no-op
// implementation is returned so callers never branch on configuration.
func NewService(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Telemetry recording disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	return newRepository(cfg)
}

func newRepository(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	logger.Info().
		Str("path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("Telemetry recorder initialized")

	repo := &repository{
		db:            db,
		cfg:           cfg,
		buffer:        make([]*Row, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) Record(ctx context.Context, row *Row) error {
	errFactory := errors.New()

	if row == nil {
		return errFactory.New(ErrInvalidRow)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationAbort, ctx.Err())
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, row)
	if len(r.buffer) >= r.cfg.BatchSize {
		if err := r.flush(); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	if r.flushTicker != nil {
		close(r.shutdownChan)
		r.flushTicker.Stop()
		<-r.flushDoneChan
	} else {
		r.mu.Lock()
		if err := r.flush(); err != nil {
			logger.Error().Err(err).Msg("Failed to flush telemetry on close")
		}
		r.mu.Unlock()
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	logger.Info().Msg("Telemetry recorder closed gracefully")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Err(err).Msg("Failed to flush telemetry batch")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Err(err).Msg("Failed to flush telemetry batch")
			}
			r.mu.Unlock()
			return
		}
	}
}

// flush writes the buffered rows in one transaction. Caller must hold the
// lock.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertRowSQL)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, row := range r.buffer {
		if _, err := stmt.Exec(
			row.Timestamp.Unix(),
			row.PowerWatts,
			row.TemperatureCelsius,
			row.UtilizationPercent,
			row.MemoryUsedMB,
			row.IntensityGPerKWh,
			row.EmissionsTotalG,
			boolToInt(row.JobRunning),
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	logger.Debug().Int("records", len(r.buffer)).Msg("Flushed telemetry to database")
	r.buffer = r.buffer[:0]

	return nil
}

func (*noopRecorder) Record(_ context.Context, _ *Row) error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}
