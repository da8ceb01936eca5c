package app

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "MODELO347_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether long-running processes should stay down.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// SkipRuntime logs and reports true when process is not to be started
// because test mode is on.
func SkipRuntime(logger *slog.Logger, process string) bool {
	if !InTestMode() {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("test mode detected, skipping startup", slog.String("process", process))
	return true
}
