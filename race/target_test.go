/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"errors"
	"testing"
	"time"

	"github.com/umbtools/umb-racebot/umb"
)

func parisZone(t *testing.T) *time.Location {
	t.Helper()
	zone, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatal(err)
	}
	return zone
}

func TestComputeTarget(t *testing.T) {
	paris := parisZone(t)
	sched := umb.TournamentSchedule{
		ID:        362,
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, paris),
		Zone:      paris,
	}
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, paris)

	tgt, err := ComputeTarget(sched, DefaultPolicy(), now)
	if err != nil {
		t.Fatalf("ComputeTarget returned error: %v", err)
	}

	wantOpen := time.Date(2025, 4, 17, 12, 0, 0, 0, paris)
	if !tgt.OpenAt.Equal(wantOpen) {
		t.Errorf("OpenAt = %v; want %v", tgt.OpenAt, wantOpen)
	}
	if _, offset := tgt.OpenAt.Zone(); offset != 2*60*60 {
		t.Errorf("OpenAt offset = %d; want +02:00 (CEST)", offset)
	}
	wantMonitor := time.Date(2025, 4, 17, 11, 55, 0, 0, paris)
	if !tgt.MonitorFrom.Equal(wantMonitor) {
		t.Errorf("MonitorFrom = %v; want %v", tgt.MonitorFrom, wantMonitor)
	}
	if tgt.Warning != "" {
		t.Errorf("unexpected staleness warning: %q", tgt.Warning)
	}
}

func TestComputeTargetIdempotent(t *testing.T) {
	paris := parisZone(t)
	sched := umb.TournamentSchedule{
		ID:        362,
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, paris),
		Zone:      paris,
	}
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, paris)

	first, err := ComputeTarget(sched, DefaultPolicy(), now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ComputeTarget(sched, DefaultPolicy(), now.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !first.OpenAt.Equal(second.OpenAt) || !first.MonitorFrom.Equal(second.MonitorFrom) {
		t.Errorf("target drifted between computations: %v vs %v", first, second)
	}
}

func TestComputeTargetAcrossDSTBoundary(t *testing.T) {
	// start date two weeks after the spring-forward Sunday; the open day
	// lands before the switch and must use the standard-time offset
	paris := parisZone(t)
	sched := umb.TournamentSchedule{
		ID:        400,
		StartDate: time.Date(2025, 4, 10, 0, 0, 0, 0, paris),
		Zone:      paris,
	}

	tgt, err := ComputeTarget(sched, DefaultPolicy(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, paris))
	if err != nil {
		t.Fatal(err)
	}

	wantOpen := time.Date(2025, 3, 27, 12, 0, 0, 0, paris)
	if !tgt.OpenAt.Equal(wantOpen) {
		t.Errorf("OpenAt = %v; want %v", tgt.OpenAt, wantOpen)
	}
	if tgt.OpenAt.Hour() != 12 || tgt.OpenAt.Minute() != 0 {
		t.Errorf("OpenAt clock = %02d:%02d; want 12:00",
			tgt.OpenAt.Hour(), tgt.OpenAt.Minute())
	}
	if _, offset := tgt.OpenAt.Zone(); offset != 60*60 {
		t.Errorf("OpenAt offset = %d; want +01:00 (CET)", offset)
	}
}

func TestComputeTargetInvalid(t *testing.T) {
	paris := parisZone(t)
	now := time.Now()

	cases := []struct {
		name  string
		sched umb.TournamentSchedule
		pol   Policy
	}{
		{
			name:  "zero start date",
			sched: umb.TournamentSchedule{ID: 1, Zone: paris},
			pol:   DefaultPolicy(),
		},
		{
			name: "no time zone",
			sched: umb.TournamentSchedule{ID: 2,
				StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
			pol: DefaultPolicy(),
		},
		{
			name: "negative offset",
			sched: umb.TournamentSchedule{ID: 3,
				StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, paris), Zone: paris},
			pol: func() Policy {
				p := DefaultPolicy()
				p.OpenOffsetDays = -1
				return p
			}(),
		},
		{
			name: "clock past midnight",
			sched: umb.TournamentSchedule{ID: 4,
				StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, paris), Zone: paris},
			pol: func() Policy {
				p := DefaultPolicy()
				p.OpenClock = 25 * time.Hour
				return p
			}(),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ComputeTarget(c.sched, c.pol, now)
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("ComputeTarget error = %v; want ErrInvalidSchedule", err)
			}
		})
	}

	// a missing schedule zone is fine when the policy supplies one
	pol := DefaultPolicy()
	pol.Zone = paris
	sched := umb.TournamentSchedule{ID: 5,
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := ComputeTarget(sched, pol, now); err != nil {
		t.Errorf("ComputeTarget with policy zone returned error: %v", err)
	}
}

func TestComputeTargetStaleWarning(t *testing.T) {
	paris := parisZone(t)
	sched := umb.TournamentSchedule{
		ID:        362,
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, paris),
		Zone:      paris,
	}

	// an hour past the open instant, well over the 15 minute threshold
	now := time.Date(2025, 4, 17, 13, 0, 0, 0, paris)
	tgt, err := ComputeTarget(sched, DefaultPolicy(), now)
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Warning == "" {
		t.Error("expected a staleness warning for a long-past open instant")
	}

	// just past the open instant stays warning-free
	now = time.Date(2025, 4, 17, 12, 5, 0, 0, paris)
	tgt, err = ComputeTarget(sched, DefaultPolicy(), now)
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Warning != "" {
		t.Errorf("unexpected warning inside past grace: %q", tgt.Warning)
	}
}
