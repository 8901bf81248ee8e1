package mcp

import "testing"

func TestRateLimiterAllowsUpToBurst(t *testing.T) {
	rl := NewRateLimiter(3, 60_000_000_000) // 3 requests per minute, minute expressed in ns
	for i := 0; i < 3; i++ {
		if !rl.Allow("agent-a") {
			t.Fatalf("request %d: expected allow within burst", i)
		}
	}
	if rl.Allow("agent-a") {
		t.Error("expected 4th request to be rate limited")
	}
}

func TestRateLimiterShardsPerAgent(t *testing.T) {
	rl := NewRateLimiter(1, 60_000_000_000)
	if !rl.Allow("agent-a") {
		t.Fatal("expected agent-a's first request to be allowed")
	}
	if rl.Allow("agent-a") {
		t.Error("expected agent-a's second request to be denied")
	}
	if !rl.Allow("agent-b") {
		t.Error("agent-b must not be affected by agent-a's exhausted limit")
	}
}

func TestRateLimiterRemainingClamped(t *testing.T) {
	rl := NewRateLimiter(5, 60_000_000_000)
	if got := rl.Remaining("fresh-agent"); got != 5 {
		t.Errorf("Remaining() for an unused agent = %d, want 5", got)
	}
	rl.Allow("fresh-agent")
	if got := rl.Remaining("fresh-agent"); got < 0 || got > 5 {
		t.Errorf("Remaining() = %d, want within [0,5]", got)
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.requestsPerWindow != 100 {
		t.Errorf("requestsPerWindow default = %d, want 100", rl.requestsPerWindow)
	}
	if rl.window.Seconds() != 60 {
		t.Errorf("window default = %v, want 60s", rl.window)
	}
}
