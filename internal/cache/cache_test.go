package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	k := Key("src-1", "https://opportunitydesk.org/")

	if !strings.HasPrefix(k, "crawl:cache:") {
		t.Errorf("key %q missing namespace prefix", k)
	}
	if len(k) != len("crawl:cache:")+16 {
		t.Errorf("key %q should carry a 16-char digest", k)
	}
	if k != Key("src-1", "https://opportunitydesk.org/") {
		t.Error("same inputs must derive the same key")
	}
	if k == Key("src-2", "https://opportunitydesk.org/") {
		t.Error("scope must participate in the key")
	}
	if k == Key("src-1", "https://opportunitydesk.org/page/2/") {
		t.Error("url must participate in the key")
	}
}

func TestIsStale(t *testing.T) {
	now := time.Now()

	if IsStale(now.Add(-time.Hour), now) {
		t.Error("an hour-old payload is fresh")
	}
	if IsStale(now.Add(-StaleAfter), now) {
		t.Error("exactly at the threshold is still fresh")
	}
	if !IsStale(now.Add(-StaleAfter-time.Second), now) {
		t.Error("past the threshold is stale")
	}
}
