package zaplog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Swind/go-dispatch-queue/core"
)

func TestLogger_ForwardsMessagesAndFields(t *testing.T) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(zcore))

	logger.Debug("debug msg", core.F("queue", "io"))
	logger.Info("info msg", core.F("count", 3))
	logger.Warn("warn msg")
	logger.Error("error msg", core.F("queue", "io"), core.F("reason", "disposed"))

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}

	if entries[0].Level != zapcore.DebugLevel || entries[0].Message != "debug msg" {
		t.Errorf("entry[0] = (%v, %q), want (debug, debug msg)", entries[0].Level, entries[0].Message)
	}

	fields := entries[0].ContextMap()
	if fields["queue"] != "io" {
		t.Errorf(`entry[0] field "queue" = %v, want io`, fields["queue"])
	}

	if entries[1].Message != "info msg" {
		t.Errorf("entry[1].Message = %q, want info msg", entries[1].Message)
	}
	infoFields := entries[1].ContextMap()
	if infoFields["count"] != int64(3) {
		t.Errorf(`entry[1] field "count" = %v, want 3`, infoFields["count"])
	}

	if len(entries[3].Context) != 2 {
		t.Errorf("entry[3] field count = %d, want 2", len(entries[3].Context))
	}
}

func TestLogger_NilFallsBackToNop(t *testing.T) {
	logger := New(nil)

	// Must not panic.
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("dropped")
	logger.Error("dropped")
}

func TestLogger_SatisfiesCoreInterface(t *testing.T) {
	var _ core.Logger = New(zap.NewNop())
}
