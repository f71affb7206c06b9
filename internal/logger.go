package internal

import (
	"io"
	"log/slog"
	"os"
)

var testLogger *slog.Logger

func init() {
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("SREGAME_TEST_LOG") == "1" {
		testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
}

// TestLogger returns the logger tests pass to components. Set
// SREGAME_TEST_LOG=1 to see its output.
func TestLogger() *slog.Logger {
	return testLogger
}
