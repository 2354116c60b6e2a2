package swarm_test

import (
	"strings"
	"testing"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

func TestCleanTerminalStripsANSI(t *testing.T) {
	raw := "\x1b[1;32mPASS\x1b[0m  ok   \r\n\x1b]0;window title\x07next line\t\n\n"
	got := swarm.CleanTerminal(raw)
	want := "PASS  ok\nnext line"
	if got != want {
		t.Fatalf("CleanTerminal = %q, want %q", got, want)
	}
}

func TestCleanTerminalEmpty(t *testing.T) {
	if got := swarm.CleanTerminal("  \n\t\n"); got != "" {
		t.Fatalf("whitespace-only input = %q", got)
	}
}

func TestExtractDevServerURL(t *testing.T) {
	out := "starting...\nListening on http://localhost:3000\nready\nNow on http://127.0.0.1:8080/app"
	if got := swarm.ExtractDevServerURL(out); got != "http://127.0.0.1:8080/app" {
		t.Fatalf("got %q, want the last dev URL", got)
	}
}

func TestExtractDevServerURLIgnoresRemoteHosts(t *testing.T) {
	out := "pushed to https://github.com/acme/repo\ndeployed at https://app.example.com"
	if got := swarm.ExtractDevServerURL(out); got != "" {
		t.Fatalf("remote URL reported as a dev server: %q", got)
	}
}

func TestExtractSummaryPrefersURLs(t *testing.T) {
	out := "did some work\nsee https://ci.example.com/run/1\nalso https://ci.example.com/run/1\nand http://localhost:3000"
	got := swarm.ExtractSummary(out)
	want := "https://ci.example.com/run/1\nhttp://localhost:3000"
	if got != want {
		t.Fatalf("summary = %q, want deduplicated URLs %q", got, want)
	}
}

func TestExtractSummaryCapsURLsAtThree(t *testing.T) {
	out := "https://a.test/1\nhttps://a.test/2\nhttps://a.test/3\nhttps://a.test/4"
	got := swarm.ExtractSummary(out)
	want := "https://a.test/2\nhttps://a.test/3\nhttps://a.test/4"
	if got != want {
		t.Fatalf("summary = %q, want the last three URLs %q", got, want)
	}
}

func TestExtractSummaryFallsBackToTailLines(t *testing.T) {
	out := "line one\n\nline two\nline three\nline four\n"
	got := swarm.ExtractSummary(out)
	want := "line two\nline three\nline four"
	if got != want {
		t.Fatalf("summary = %q, want last three non-empty lines %q", got, want)
	}
}

func TestExtractSummaryTruncatesLongTail(t *testing.T) {
	out := strings.Repeat("y", 500)
	got := swarm.ExtractSummary(out)
	if len([]rune(got)) != 303 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long tail not truncated: %d runes", len([]rune(got)))
	}
}

func TestExtractSummaryEmpty(t *testing.T) {
	if got := swarm.ExtractSummary("\x1b[2J  \n"); got != "" {
		t.Fatalf("empty output summarized as %q", got)
	}
}
