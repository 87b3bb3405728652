package stall

import (
	"testing"
	"time"

	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestResolveReturnsDefaultsForMissingOrMalformed(t *testing.T) {
	want := Thresholds{
		domain.StatusIntake:     2,
		domain.StatusDiagnosing: 3,
		domain.StatusRepairing:  5,
		domain.StatusCompleted:  0,
		domain.StatusReturned:   0,
		domain.StatusDeclined:   0,
		domain.StatusCancelled:  0,
		domain.StatusBuyback:    0,
		domain.StatusDisposed:   0,
	}

	for name, raw := range map[string]*string{
		"nil":       nil,
		"blank":     strPtr("  "),
		"malformed": strPtr("{not json"),
		"array":     strPtr("[1,2,3]"),
		"null":      strPtr("null"),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, Resolve(raw))
		})
	}
}

func TestResolveMergesOverrides(t *testing.T) {
	got := Resolve(strPtr(`{"DIAGNOSING": 7, "COMPLETED": 1, "UNKNOWN": 9, "INTAKE": -1, "REPAIRING": 2.5}`))

	assert.Equal(t, 7, got.For(domain.StatusDiagnosing))
	assert.Equal(t, 1, got.For(domain.StatusCompleted))
	assert.Equal(t, 2, got.For(domain.StatusIntake), "negative value keeps default")
	assert.Equal(t, 5, got.For(domain.StatusRepairing), "fractional value keeps default")
	assert.Len(t, got, len(domain.Statuses()))
	_, ok := got[domain.Status("UNKNOWN")]
	assert.False(t, ok)
}

func TestResolveDoesNotAliasDefaults(t *testing.T) {
	a := Resolve(nil)
	a[domain.StatusIntake] = 99
	assert.Equal(t, 2, Resolve(nil).For(domain.StatusIntake))
}

func TestCalculateScenario(t *testing.T) {
	received := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	thresholds := Resolve(strPtr(`{"DIAGNOSING": 3}`))

	info := Calculate(domain.StatusDiagnosing, received, thresholds, received.Add(4*day))

	assert.Equal(t, domain.StallInfo{AgeDays: 4, StallThreshold: 3, Stalled: true, StalledByDays: 1}, info)
}

func TestCalculateTruncatesAge(t *testing.T) {
	received := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	info := Calculate(domain.StatusIntake, received, Defaults(), received.Add(2*day-time.Second))
	assert.Equal(t, 1, info.AgeDays)
	assert.False(t, info.Stalled)

	info = Calculate(domain.StatusIntake, received, Defaults(), received.Add(-36*time.Hour))
	assert.Equal(t, -1, info.AgeDays)
	assert.False(t, info.Stalled)
}

func TestCalculateProperties(t *testing.T) {
	received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for threshold := 0; threshold <= 6; threshold++ {
		thresholds := Defaults().Merge(map[domain.Status]int{domain.StatusRepairing: threshold})
		for age := 0; age <= 10; age++ {
			info := Calculate(domain.StatusRepairing, received, thresholds, received.Add(time.Duration(age)*day+time.Hour))

			wantStalled := threshold > 0 && age >= threshold
			assert.Equal(t, wantStalled, info.Stalled, "T=%d A=%d", threshold, age)
			assert.Equal(t, threshold, info.StallThreshold)
			if info.Stalled {
				assert.Equal(t, age-threshold, info.StalledByDays)
			} else {
				assert.Equal(t, 0, info.StalledByDays)
			}
		}
	}
}

func TestCalculateTerminalStatusNeverStalls(t *testing.T) {
	received := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	info := Calculate(domain.StatusCompleted, received, Defaults(), received.AddDate(3, 0, 0))
	assert.False(t, info.Stalled)
	assert.Equal(t, 0, info.StallThreshold)
}

func TestCalculateUnknownStatusHasNoThreshold(t *testing.T) {
	received := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	info := Calculate(domain.Status("LOST"), received, Defaults(), received.AddDate(0, 0, 40))
	assert.Equal(t, 0, info.StallThreshold)
	assert.False(t, info.Stalled)
}

func TestEncodeRoundTripsThroughResolve(t *testing.T) {
	custom := Defaults().Merge(map[domain.Status]int{domain.StatusIntake: 10})
	raw := string(custom.Encode())
	assert.Equal(t, custom, Resolve(&raw))
}
