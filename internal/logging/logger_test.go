package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantDebug bool
		wantInfo  bool
	}{
		{"info", Config{Level: LevelInfo, Enabled: true}, false, true},
		{"debug", Config{Level: LevelDebug, Enabled: true}, true, true},
		{"disabled", Config{Level: LevelDebug, Enabled: false}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Output = &buf
			l := New(tt.cfg)
			l.Debug("dbg")
			l.Info("inf")
			if got := strings.Contains(buf.String(), "msg=dbg"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(buf.String(), "msg=inf"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestComponentAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, Enabled: true, Component: "frame"})
	l.Info("row done", "row", 3)
	out := buf.String()
	if !strings.Contains(out, "component=frame") || !strings.Contains(out, "row=3") {
		t.Fatalf("unexpected record %q", out)
	}
}

func TestInitAndGlobal(t *testing.T) {
	prev, prevDefault := Global(), slog.Default()
	defer func() {
		SetGlobal(prev)
		slog.SetDefault(prevDefault)
	}()

	var buf bytes.Buffer
	Init(&buf, true, false)
	Global().Debug("visible")
	slog.Debug("via default")
	if !strings.Contains(buf.String(), "visible") || !strings.Contains(buf.String(), "via default") {
		t.Fatalf("verbose Init did not enable debug: %q", buf.String())
	}

	buf.Reset()
	Init(&buf, true, true)
	Global().Error("hidden")
	if buf.Len() != 0 {
		t.Fatalf("quiet Init still logs: %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) != Discard() {
		t.Fatal("OrDiscard(nil) is not the discard logger")
	}
	l := New(DefaultConfig())
	if OrDiscard(l) != l {
		t.Fatal("OrDiscard replaced a non-nil logger")
	}
}
