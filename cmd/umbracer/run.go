/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/umbtools/umb-racebot/internal"
	"github.com/umbtools/umb-racebot/notify"
	"github.com/umbtools/umb-racebot/race"
	"github.com/umbtools/umb-racebot/s3store"
	"github.com/umbtools/umb-racebot/umb"
)

func buildTarget(tourID int, start, zoneName string) (umb.TournamentSchedule, race.Target) {
	zone := mustZone(zoneName)
	startDate, err := internal.ParseDateInZone(start, zone)
	if err != nil || startDate.IsZero() {
		log.Fatalf("Error parsing start date %q: %v", start, err)
	}

	sched := umb.TournamentSchedule{
		ID:        tourID,
		StartDate: startDate,
		Zone:      zone,
	}
	tgt, err := race.ComputeTarget(sched, race.DefaultPolicy(), time.Now())
	if err != nil {
		log.Fatalf("Error computing target: %v", err)
	}
	if tgt.Warning != "" {
		log.Printf("umbracer: warning: %s", tgt.Warning)
	}
	return sched, tgt
}

func runRace(ctx context.Context, sched umb.TournamentSchedule,
	tgt race.Target, participants []race.Participant) []race.Outcome {

	launcher := race.NewLauncher(sched, tgt, race.DefaultPolicy(),
		umb.DefaultMarkers(), participants)
	launcher.SetBaseURL(os.Getenv("UMB_BASE_URL"))

	snaps := s3store.New(ctx,
		envOr("UMB_SNAPSHOT_BUCKET", internal.SnapshotBucket), true, true)
	if err := snaps.Init(); err != nil {
		log.Printf("umbracer: warning: snapshot store unavailable, using local files: %v", err)
	} else {
		launcher.SetSnapshotter(snaps)
	}

	return launcher.Run(ctx)
}

// printOutcomes renders per-participant results and returns the process
// exit code: 0 all succeeded, 2 partial, 1 none.
func printOutcomes(tournament string, outcomes []race.Outcome) int {
	for _, out := range outcomes {
		switch out.Status {
		case race.StatusSucceeded:
			fmt.Printf("%s (%s): SUCCEEDED in %v — %s\n", out.Player, out.Kind,
				out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond), out.Ref)
		default:
			fmt.Printf("%s (%s): %s — %s\n", out.Player, out.Kind,
				out.Status, out.Reason)
			if out.SnapshotRef != "" {
				fmt.Printf("  diagnostic snapshot: %s\n", out.SnapshotRef)
			}
		}
	}

	succeeded, total := race.Tally(outcomes)
	fmt.Printf("\n%d/%d attempts succeeded\n", succeeded, total)
	switch {
	case succeeded == total:
		return 0
	case succeeded > 0:
		return 2
	default:
		return 1
	}
}

func reportOutcomes(sched umb.TournamentSchedule, outcomes []race.Outcome) {
	webhook := os.Getenv("UMB_DISCORD_WEBHOOK")
	if webhook == "" {
		return
	}
	reporter, err := notify.NewReporter(webhook)
	if err != nil {
		log.Printf("umbracer: warning: %v", err)
		return
	}
	name := sched.Name
	if name == "" {
		name = fmt.Sprintf("tournament %d", sched.ID)
	}
	if err := reporter.Report(name, outcomes); err != nil {
		log.Printf("umbracer: warning: outcome report failed: %v", err)
	}
}

func loadMultiConfig(path string) (multiConfig, error) {
	var cfg multiConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	if cfg.TournamentID <= 0 {
		return cfg, fmt.Errorf("%s: missing tournament_id", path)
	}
	if cfg.StartDate == "" {
		return cfg, fmt.Errorf("%s: missing start_date", path)
	}
	return cfg, nil
}

func mustZone(name string) *time.Location {
	zone, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("Error loading time zone %q: %v", name, err)
	}
	return zone
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
