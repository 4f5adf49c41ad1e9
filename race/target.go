/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"errors"
	"fmt"
	"time"

	"github.com/umbtools/umb-racebot/umb"
)

// ErrInvalidSchedule: the schedule cannot yield a registration-open
// instant (missing start date or time zone). Fails fast, non-retryable.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Policy carries every timing constant of a race. It is passed explicitly
// into the calculator, session manager, controller, and launcher at
// construction; nothing reads it from ambient state.
type Policy struct {
	// OpenOffsetDays before the tournament start date that registration
	// opens.
	OpenOffsetDays int
	// OpenClock is the local opening time, as an offset from midnight.
	OpenClock time.Duration
	// Zone overrides the schedule's time zone when non-nil.
	Zone *time.Location

	// MonitorLead before the open instant that monitoring begins.
	MonitorLead time.Duration
	// PollInterval between monitoring checks.
	PollInterval time.Duration
	// ArmThreshold of remaining time at which the controller arms and
	// stops refreshing tokens. Defaults to one poll interval.
	ArmThreshold time.Duration
	// SpinStep is the wait resolution between Armed and Firing; it
	// bounds how far past the target instant the first submit can land.
	SpinStep time.Duration

	// Grace past the open instant during which transient submission
	// failures may still be retried.
	Grace time.Duration
	// SubmitTimeout bounds each individual submission.
	SubmitTimeout time.Duration
	// HandshakeTimeout bounds each session acquisition request.
	HandshakeTimeout time.Duration
	// MaxRetries of transient submission failures within the grace
	// window.
	MaxRetries int
	// RetryBackoff between submission retries.
	RetryBackoff time.Duration

	// Stagger between successive participant launches.
	Stagger time.Duration
	// TokenTTL is how long acquired anti-forgery tokens are considered
	// fresh.
	TokenTTL time.Duration
	// PastGrace is how far in the past the open instant may already be
	// before the calculator attaches a warning.
	PastGrace time.Duration
}

// DefaultPolicy returns the production timing constants: registration
// opens 14 days before the start date at 12:00:00 local time.
func DefaultPolicy() Policy {
	return Policy{
		OpenOffsetDays:   14,
		OpenClock:        12 * time.Hour,
		MonitorLead:      5 * time.Minute,
		PollInterval:     100 * time.Millisecond,
		ArmThreshold:     100 * time.Millisecond,
		SpinStep:         500 * time.Microsecond,
		Grace:            10 * time.Second,
		SubmitTimeout:    5 * time.Second,
		HandshakeTimeout: 3 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     50 * time.Millisecond,
		Stagger:          50 * time.Millisecond,
		TokenTTL:         2 * time.Minute,
		PastGrace:        15 * time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.PollInterval <= 0 {
		p.PollInterval = def.PollInterval
	}
	if p.ArmThreshold <= 0 {
		p.ArmThreshold = p.PollInterval
	}
	if p.SpinStep <= 0 {
		p.SpinStep = def.SpinStep
	}
	if p.SubmitTimeout <= 0 {
		p.SubmitTimeout = def.SubmitTimeout
	}
	if p.HandshakeTimeout <= 0 {
		p.HandshakeTimeout = def.HandshakeTimeout
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = def.RetryBackoff
	}
	if p.TokenTTL <= 0 {
		p.TokenTTL = def.TokenTTL
	}
	if p.PastGrace <= 0 {
		p.PastGrace = def.PastGrace
	}
	return p
}

// Target is the computed race timing for one tournament: immutable once
// computed, always derived, never hand-edited.
type Target struct {
	// OpenAt is the registration-open instant.
	OpenAt time.Time
	// MonitorFrom is when pre-race polling and session warm-up begin.
	MonitorFrom time.Time
	// Warning is set when the open instant is already further in the
	// past than the policy's grace threshold. Late attempts may still be
	// valid, so this is advisory, not an error.
	Warning string
}

// ComputeTarget derives the registration-open instant from the schedule
// under the given policy: start date minus OpenOffsetDays, at OpenClock
// local time in the policy zone (falling back to the schedule zone).
// Pure and idempotent; now only feeds the staleness warning.
func ComputeTarget(sched umb.TournamentSchedule, pol Policy, now time.Time) (Target, error) {
	pol = pol.withDefaults()

	if sched.StartDate.IsZero() {
		return Target{}, fmt.Errorf("%w: tournament %d has no start date",
			ErrInvalidSchedule, sched.ID)
	}
	zone := pol.Zone
	if zone == nil {
		zone = sched.Zone
	}
	if zone == nil {
		return Target{}, fmt.Errorf("%w: tournament %d has no time zone",
			ErrInvalidSchedule, sched.ID)
	}
	if pol.OpenOffsetDays < 0 || pol.OpenClock < 0 || pol.OpenClock >= 24*time.Hour {
		return Target{}, fmt.Errorf("%w: implausible open policy (offset %dd, clock %v)",
			ErrInvalidSchedule, pol.OpenOffsetDays, pol.OpenClock)
	}

	// Construct the open day first and re-anchor the clock time in the
	// zone afterwards, so a DST boundary between midnight and the open
	// clock cannot skew the instant.
	start := sched.StartDate.In(zone)
	openDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, zone).
		AddDate(0, 0, -pol.OpenOffsetDays)
	clock := pol.OpenClock
	openAt := time.Date(openDay.Year(), openDay.Month(), openDay.Day(),
		int(clock/time.Hour), int(clock/time.Minute)%60, int(clock/time.Second)%60,
		0, zone)

	tgt := Target{
		OpenAt:      openAt,
		MonitorFrom: openAt.Add(-pol.MonitorLead),
	}
	if stale := now.Sub(openAt); stale > pol.PastGrace {
		tgt.Warning = fmt.Sprintf("registration opened %v ago; attempting late",
			stale.Round(time.Second))
	}

	return tgt, nil
}
