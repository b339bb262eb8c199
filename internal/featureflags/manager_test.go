package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", "u1") || !m.Enabled("c", "u1") || !m.Enabled("e", "u1") {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", "u1") || m.Enabled("d", "u1") || m.Enabled("f", "u1") {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if !m.Global("a") {
		t.Fatal("boolean flags apply without a user token")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	if !m.Enabled("always", "u1") || !m.Global("always") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", "u1") {
		t.Fatal("0% rollout should always be disabled")
	}

	first := m.Enabled("canary", "k3x9a")
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", "k3x9a"); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Global("canary") {
		t.Fatal("percentage rollout requires a user token")
	}
}

func TestParseAndRaw(t *testing.T) {
	m := NewManager(" bad ,Quiz=ON, feed_stats_cache = 20% ,=on,x=")

	raw := m.Raw()
	if len(raw) != 2 {
		t.Fatalf("expected 2 parsed flags, got %d (%v)", len(raw), raw)
	}
	if raw["quiz"] != "on" {
		t.Fatalf("expected quiz=on, got %q", raw["quiz"])
	}
	if !m.Enabled(Quiz, "") {
		t.Fatal("flag names are case-insensitive")
	}
	if m.Enabled("unknown", "u1") {
		t.Fatal("unknown flags are disabled")
	}

	var nilManager *Manager
	if nilManager.Enabled(Quiz, "u1") {
		t.Fatal("nil manager reports every flag disabled")
	}
}

func TestSnapshot(t *testing.T) {
	m := NewManager("quiz=on,feed_stats_cache=off")

	snap := m.Snapshot("k3x9a")
	if len(snap) != 2 || !snap["quiz"] || snap["feed_stats_cache"] {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
}

func TestDefaults_KnownFlagsOnUnlessOverridden(t *testing.T) {
	m := NewManager("feed_stats_cache=off")

	if !m.Enabled(Quiz, "k3x9a") {
		t.Fatal("quiz should stay on when only another flag is configured")
	}
	if m.Global(FeedStatsCache) {
		t.Fatal("explicit value must override the default")
	}
	if raw := m.Raw(); raw[Quiz] != "on" || raw[FeedStatsCache] != "off" {
		t.Fatalf("unexpected raw flags: %v", raw)
	}

	if !NewManager("").Global(FeedStatsCache) {
		t.Fatal("feed stats cache defaults to on")
	}
}
