package download

import (
	"strings"
	"testing"
	"time"
)

func TestNewYTDLPEngine_Defaults(t *testing.T) {
	e := NewYTDLPEngine(EngineConfig{})

	if e.cfg.Executable != DefaultExecutable {
		t.Errorf("expected executable %s, got %s", DefaultExecutable, e.cfg.Executable)
	}
	if e.cfg.Retries != DefaultRetries || e.cfg.FragmentRetries != DefaultFragmentRetries {
		t.Errorf("unexpected retries %d/%d", e.cfg.Retries, e.cfg.FragmentRetries)
	}
	if e.cfg.SocketTimeout != DefaultSocketTimeout {
		t.Errorf("expected socket timeout %s, got %s", DefaultSocketTimeout, e.cfg.SocketTimeout)
	}
}

func TestCommonArgs(t *testing.T) {
	e := NewYTDLPEngine(EngineConfig{
		UserAgent:      "UA/1.0",
		AcceptLanguage: "en-US,en;q=0.9",
		SocketTimeout:  30 * time.Second,
		ForceIPv4:      true,
		CookieFile:     "/etc/cookies.txt",
	})

	args := strings.Join(e.commonArgs(), " ")

	for _, want := range []string{
		"--retries 10",
		"--fragment-retries 10",
		"--socket-timeout 30",
		"--force-ipv4",
		"--user-agent UA/1.0",
		"--add-headers Accept-Language:en-US,en;q=0.9",
		"--cookies /etc/cookies.txt",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in %q", want, args)
		}
	}
}

func TestCommonArgs_Minimal(t *testing.T) {
	args := strings.Join(NewYTDLPEngine(EngineConfig{}).commonArgs(), " ")

	for _, unwanted := range []string{"--force-ipv4", "--user-agent", "--cookies", "--add-headers"} {
		if strings.Contains(args, unwanted) {
			t.Errorf("did not expect %q in %q", unwanted, args)
		}
	}
}
