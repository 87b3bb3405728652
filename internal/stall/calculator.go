package stall

import (
	"time"

	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
)

const day = 24 * time.Hour

// Calculate computes the stall annotation of a case received at receivedAt and
// currently in status, as seen at now. Age is in whole days, truncated toward zero.
func Calculate(status domain.Status, receivedAt time.Time, thresholds Thresholds, now time.Time) domain.StallInfo {
	age := int(now.Sub(receivedAt) / day)
	threshold := thresholds.For(status)

	info := domain.StallInfo{AgeDays: age, StallThreshold: threshold}
	if threshold > 0 && age >= threshold {
		info.Stalled = true
		info.StalledByDays = age - threshold
	}
	return info
}
