package engine

import (
	"time"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// Skip reasons reported by the eligibility policy and the monitor.
const (
	SkipNotActive     = "not_active"
	SkipThrottled     = "throttled"
	SkipArrivalCutoff = "arrival_cutoff"
	SkipInFlight      = "in_flight"
)

// Default eligibility windows.
const (
	DefaultMinCheckInterval = time.Hour
	DefaultArrivalCutoff    = 24 * time.Hour
)

// EligibilityPolicy decides whether a booking is due for a price check.
type EligibilityPolicy struct {
	// MinInterval is the minimum time between two checks of one booking.
	MinInterval time.Duration
	// ArrivalCutoff stops checks once check-in is closer than this.
	ArrivalCutoff time.Duration
}

// DefaultEligibilityPolicy returns the policy with a 1 hour throttle and a
// 24 hour arrival cutoff.
func DefaultEligibilityPolicy() EligibilityPolicy {
	return EligibilityPolicy{
		MinInterval:   DefaultMinCheckInterval,
		ArrivalCutoff: DefaultArrivalCutoff,
	}
}

// ShouldCheck reports whether b may be checked at now.
func (p EligibilityPolicy) ShouldCheck(b *domain.Booking, now time.Time) bool {
	return p.Reason(b, now) == ""
}

// Reason returns the rule that excludes b at now, or "" when b is due.
// Rules apply in order: status, throttle, arrival cutoff.
func (p EligibilityPolicy) Reason(b *domain.Booking, now time.Time) string {
	return p.reason(b, now, modeCycle)
}

// checkMode selects which rules apply to a check.
type checkMode int

const (
	// modeCycle applies every rule.
	modeCycle checkMode = iota
	// modeTargeted skips the arrival cutoff.
	modeTargeted
	// modeForced only requires the booking to be active.
	modeForced
)

func (p EligibilityPolicy) reason(b *domain.Booking, now time.Time, mode checkMode) string {
	if b.Status != domain.BookingActive {
		return SkipNotActive
	}
	if mode == modeForced {
		return ""
	}
	if b.LastChecked != nil && now.Sub(*b.LastChecked) < p.MinInterval {
		return SkipThrottled
	}
	if mode == modeTargeted {
		return ""
	}
	if b.CheckIn.Sub(now) < p.ArrivalCutoff {
		return SkipArrivalCutoff
	}
	return ""
}
