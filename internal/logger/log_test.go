package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogStatus
	}{
		{"debug", DEBUG},
		{"WARNING", WARNING},
		{"warn", WARNING},
		{" error ", ERROR},
		{"", INFO},
		{"nonsense", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEmitRespectsMinLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	Log.SetOutput(&buf)
	Log.SetMinLevel(WARNING)
	defer func() {
		Log.SetMinLevel(INFO)
		Log.SetOutput(os.Stdout)
	}()

	log := Get("Test")
	log.Emit(INFO, "hidden %d", 1)
	log.Emit(ERROR, "shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected INFO line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[Test]") || !strings.Contains(out, "shown 2") {
		t.Errorf("expected ERROR line with logger name, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("expected newline-terminated output, got %q", out)
	}
}
