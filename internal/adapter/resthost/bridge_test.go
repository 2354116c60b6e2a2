package resthost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/config"
)

func testBridge(t *testing.T, handler http.HandlerFunc) *Bridge {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBridge(config.SessionHost{
		URL:     srv.URL,
		Token:   "secret",
		Timeout: 2 * time.Second,
	})
}

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	b := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := b.SendText(context.Background(), "s1", "yes"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotPath != "/sessions/s1/input" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody["text"] != "yes" {
		t.Errorf("unexpected body %v", gotBody)
	}
}

func TestSendKeys(t *testing.T) {
	var gotBody map[string]any
	b := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	if err := b.SendKeys(context.Background(), "s1", []string{"Enter"}); err != nil {
		t.Fatalf("SendKeys: %v", err)
	}
	keys, ok := gotBody["keys"].([]any)
	if !ok || len(keys) != 1 || keys[0] != "Enter" {
		t.Errorf("unexpected keys payload %v", gotBody)
	}
}

func TestRecentOutput(t *testing.T) {
	b := testBridge(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lines") != "50" {
			t.Errorf("expected lines=50, got %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"output": "compiling...\ndone"})
	})

	out, err := b.RecentOutput(context.Background(), "s1", 50)
	if err != nil {
		t.Fatalf("RecentOutput: %v", err)
	}
	if out != "compiling...\ndone" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestHostErrorSurfaced(t *testing.T) {
	b := testBridge(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	})

	err := b.Stop(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestDeliverFansOut(t *testing.T) {
	b := NewBridge(config.SessionHost{URL: "http://unused"})

	var mu sync.Mutex
	var got []string
	unsub1, _ := b.Subscribe(func(sessionID, event string, _ map[string]any) {
		mu.Lock()
		got = append(got, "a:"+sessionID+":"+event)
		mu.Unlock()
	})
	_, _ = b.Subscribe(func(sessionID, event string, _ map[string]any) {
		mu.Lock()
		got = append(got, "b:"+sessionID+":"+event)
		mu.Unlock()
	})

	b.Deliver("s1", "blocked", nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}

	unsub1()
	got = nil
	b.Deliver("s1", "ready", nil)
	if len(got) != 1 || got[0] != "b:s1:ready" {
		t.Errorf("expected only second handler after unsubscribe, got %v", got)
	}
}
