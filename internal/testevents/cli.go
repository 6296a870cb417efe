package testevents

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/truthschool/prepscore/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:9080",
		NumEvents:      10000,
		Users:          50,
		Questions:      100,
		Tests:          20,
		Challenges:     30,
		DuplicateRatio: 0.05,
		Seed:           1,
		Workers:        runtime.NumCPU() * 2,
		Timeout:        30 * time.Second,
		SettleTimeout:  2 * time.Minute,
	}
}

// SetupLogging configures logging to both console and file. If logFile is
// empty, a timestamped filename is generated. The returned closer releases
// the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	out := zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), zapcore.AddSync(file))
	if err := logger.Init(logger.WithFormat("console"), logger.WithLevel(level), logger.WithOutput(out)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}
