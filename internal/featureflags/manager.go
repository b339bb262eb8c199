// Package featureflags evaluates rollout flags keyed by the anonymous user token.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flag names.
const (
	FeedStatsCache = "feed_stats_cache"
	Quiz           = "quiz"
)

// defaults apply to known flags the config string leaves out.
var defaults = map[string]string{
	FeedStatsCache: "on",
	Quiz:           "on",
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "feed_stats_cache=on,quiz=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Known flags missing from raw keep their default value.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		value := normalize(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user token.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by user token, e.g. 25%)
func (m *Manager) Enabled(name, userKey string) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if strings.HasSuffix(value, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if userKey == "" {
			return false
		}
		return rolloutBucket(name, userKey) < pct
	}

	return false
}

// Global reports whether a flag is fully on, independent of any user.
func (m *Manager) Global(name string) bool {
	return m.Enabled(name, "")
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one user token.
func (m *Manager) Snapshot(userKey string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userKey)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userKey string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userKey))
	return int(h.Sum32() % 100)
}
