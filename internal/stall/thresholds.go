// Package stall decides whether a repair case has sat in its current status
// longer than its organization allows.
package stall

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"go.uber.org/zap"
)

// MaxThresholdDays bounds values accepted from organization settings.
const MaxThresholdDays = 30

// Thresholds maps a status to the number of days after which a case in that
// status is stalled. Zero means the status never stalls.
type Thresholds map[domain.Status]int

var defaultThresholds = map[domain.Status]int{
	domain.StatusIntake:     2,
	domain.StatusDiagnosing: 3,
	domain.StatusRepairing:  5,
}

// Defaults returns a complete mapping holding the built-in thresholds.
func Defaults() Thresholds {
	t := make(Thresholds, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		t[s] = defaultThresholds[s]
	}
	return t
}

// For returns the threshold for status, or zero when it has none.
func (t Thresholds) For(status domain.Status) int {
	return t[status]
}

// Clone returns an independent copy.
func (t Thresholds) Clone() Thresholds {
	out := make(Thresholds, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge returns base with overrides applied. Entries for unknown statuses are dropped.
func (t Thresholds) Merge(overrides map[domain.Status]int) Thresholds {
	out := t.Clone()
	for s, v := range overrides {
		if !s.Valid() {
			continue
		}
		out[s] = v
	}
	return out
}

// Resolve parses a stored JSON threshold object and lays it over the
// defaults. It never fails: a nil, blank or malformed blob yields exactly the
// defaults, and entries that are not non-negative integers for a known status
// are skipped.
func Resolve(raw *string) Thresholds {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return Defaults()
	}
	return ResolveBytes([]byte(*raw))
}

// ResolveBytes is Resolve for a JSON column value.
func ResolveBytes(raw []byte) Thresholds {
	if len(raw) == 0 {
		return Defaults()
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		zap.L().Warn("invalid stall thresholds, using defaults", zap.Error(err))
		return Defaults()
	}

	overrides := make(map[domain.Status]int, len(parsed))
	for key, value := range parsed {
		status := domain.Status(key)
		if !status.Valid() {
			continue
		}
		days, ok := parseDays(value)
		if !ok {
			zap.L().Warn("invalid stall threshold entry ignored",
				zap.String("status", key),
				zap.ByteString("value", value),
			)
			continue
		}
		overrides[status] = days
	}
	return Defaults().Merge(overrides)
}

func parseDays(value json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(value, &f); err != nil {
		return 0, false
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Encode renders t as the JSON object stored in organization settings.
func (t Thresholds) Encode() []byte {
	out := make(map[string]int, len(t))
	for s, v := range t {
		out[string(s)] = v
	}
	b, _ := json.Marshal(out)
	return b
}

// ToMap returns t keyed by plain strings, for API responses.
func (t Thresholds) ToMap() map[string]int {
	out := make(map[string]int, len(t))
	for s, v := range t {
		out[string(s)] = v
	}
	return out
}
