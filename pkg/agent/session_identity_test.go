package agent

import (
	"testing"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
)

func TestSessionKeyIsDeterministic(t *testing.T) {
	k1 := sessionKey(chat("a"))
	k2 := sessionKey(chat("b"))
	if k1 != k2 {
		t.Fatalf("expected deterministic session keys, got %q vs %q", k1, k2)
	}
	if !isConversationKey(k1) {
		t.Fatalf("expected a derived key, got %q", k1)
	}
}

func TestSessionKeyDiffersByCandidate(t *testing.T) {
	other := chat("a")
	other.SenderID = "7|grace"
	if sessionKey(chat("a")) == sessionKey(other) {
		t.Fatalf("expected different keys for different candidates")
	}
}

func TestSessionKeyIgnoresDisplayName(t *testing.T) {
	renamed := chat("a")
	renamed.SenderID = "42|ada lovelace"
	if sessionKey(chat("a")) != sessionKey(renamed) {
		t.Fatalf("expected a rename to keep the session key")
	}
}

func TestSessionKeyUsesThreadOverride(t *testing.T) {
	thread := chat("a")
	thread.SessionKey = "thread-9"
	if sessionKey(chat("a")) == sessionKey(thread) {
		t.Fatalf("expected a thread to scope its own session")
	}

	derived := chat("a")
	derived.SessionKey = sessionKey(thread)
	derived.ChatID = "elsewhere"
	if sessionKey(derived) != sessionKey(thread) {
		t.Fatalf("expected a derived key to pass through")
	}
}

func TestSessionKeyAnonymousFallback(t *testing.T) {
	msg := bus.InboundMessage{Channel: "cli", ChatID: "direct", Content: "hi"}
	if got := sessionKey(msg); got != "cli:direct" {
		t.Fatalf("expected conversation fallback, got %q", got)
	}
}
