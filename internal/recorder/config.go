package recorder

import "codeberg.org/mutker/gpucarbon/internal/errors"

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/gpucarbon/telemetry.db"
	defaultBatchSize    = 16
	defaultBatchTimeout = 30 // seconds
)

type Config struct {
	Enabled      bool
	DBPath       string
	BatchSize    int
	BatchTimeout int
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
