package logging

import "testing"

func TestNewDevelopmentConfigReturnsUsableLogger(t *testing.T) {
	logger := New(Config{Level: LevelDebug, Development: true})
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
	logger.Infow("test message", "key", "value")
}

func TestNoOpDiscardsEverything(t *testing.T) {
	logger := NoOp()
	if logger == nil {
		t.Fatal("expected a non-nil no-op logger")
	}
	logger.Debugw("discarded")
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("bogus") != parseLevel(LevelInfo) {
		t.Fatal("expected unknown level to fall back to info")
	}
}
