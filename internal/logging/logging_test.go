package logging_test

import (
	"log/slog"
	"testing"

	"ciphermesh/internal/logging"
)

func TestSetup_LevelFiltering(t *testing.T) {
	logger := logging.Setup("warn")
	if !logger.Enabled(nil, slog.LevelWarn) {
		t.Errorf("warn level should be enabled at warn threshold")
	}
	if logger.Enabled(nil, slog.LevelInfo) {
		t.Errorf("info level should be disabled at warn threshold")
	}
}

func TestSetup_DebugEnablesEverything(t *testing.T) {
	logger := logging.Setup("debug")
	if !logger.Enabled(nil, slog.LevelDebug) {
		t.Errorf("debug level should be enabled at debug threshold")
	}
}

func TestSetup_UnknownLevelDefaultsToInfo(t *testing.T) {
	logger := logging.Setup("nonsense")
	if !logger.Enabled(nil, slog.LevelInfo) {
		t.Errorf("unknown level should fall back to info")
	}
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Errorf("unknown level should not enable debug")
	}
}

func TestSetup_SetsSlogDefault(t *testing.T) {
	logger := logging.Setup("info")
	if slog.Default() != logger {
		t.Errorf("Setup did not install its logger as the slog default")
	}
}
