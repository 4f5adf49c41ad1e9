/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/umbtools/umb-racebot/umb"
)

// Participant pairs a player with the strategy that will register them.
type Participant struct {
	Profile umb.PlayerProfile
	Kind    Kind
}

// Launcher runs one race controller per participant against a single
// tournament, with staggered synchronized starts, and collects their
// outcomes. Each controller gets its own session manager; no state is
// shared between concurrent attempts.
type Launcher struct {
	sched        umb.TournamentSchedule
	target       Target
	pol          Policy
	markers      umb.Markers
	participants []Participant

	// baseURL overrides the production endpoint root when non-empty.
	baseURL string
	// snaps receives browser diagnostic snapshots; may be nil.
	snaps Snapshotter

	// newStrategy is replaceable in tests.
	newStrategy func(p Participant, regURL, name string) Strategy
}

func NewLauncher(sched umb.TournamentSchedule, target Target, pol Policy,
	markers umb.Markers, participants []Participant) *Launcher {

	l := &Launcher{
		sched:        sched,
		target:       target,
		pol:          pol.withDefaults(),
		markers:      markers,
		participants: participants,
	}
	l.newStrategy = l.defaultStrategy
	return l
}

// SetBaseURL points the launcher at a non-production endpoint root.
func (l *Launcher) SetBaseURL(baseURL string) {
	l.baseURL = baseURL
}

// SetSnapshotter wires a diagnostic snapshot sink for browser attempts.
func (l *Launcher) SetSnapshotter(snaps Snapshotter) {
	l.snaps = snaps
}

// Run launches every participant's controller, staggered by the policy's
// launch delay, and supervises them to completion. It always returns
// exactly one outcome per participant, in request order; a fault in one
// attempt (including a panic) becomes that participant's aborted outcome
// and never disturbs the others.
func (l *Launcher) Run(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(l.participants))

	log.Printf("race.launch: tournament %d: launching %d participant(s), target %s",
		l.sched.ID, len(l.participants),
		l.target.OpenAt.Format(time.RFC3339))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range l.participants {
		delay := time.Duration(i) * l.pol.Stagger
		g.Go(func() error {
			// a fault becomes this participant's outcome; returning an
			// error here would cancel gctx and take siblings down
			outcomes[i] = l.runOne(gctx, p, delay)
			return nil
		})
	}
	g.Wait()

	succeeded, total := Tally(outcomes)
	log.Printf("race.launch: tournament %d: %d/%d attempts succeeded",
		l.sched.ID, succeeded, total)

	return outcomes
}

func (l *Launcher) runOne(ctx context.Context, p Participant,
	delay time.Duration) (out Outcome) {

	name := p.Profile.DisplayName()
	defer func() {
		// controller setup faults must not take sibling attempts down
		if r := recover(); r != nil {
			out = Outcome{
				AttemptID:    fmt.Sprintf("race-%d-%s", l.sched.ID, name),
				TournamentID: l.sched.ID,
				Player:       name,
				Kind:         p.Kind,
				Status:       StatusAborted,
				Reason:       fmt.Sprintf("launch fault: %v", r),
				Err:          fmt.Errorf("launch fault: %v", r),
			}
			log.Printf("race.launch: %s: %s", out.AttemptID, out.Reason)
		}
	}()

	if delay > 0 {
		log.Printf("race.launch: %s (%s): starting after %v stagger",
			name, p.Kind, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Outcome{
				AttemptID:    fmt.Sprintf("race-%d-%s", l.sched.ID, name),
				TournamentID: l.sched.ID,
				Player:       name,
				Kind:         p.Kind,
				Status:       StatusAborted,
				Reason:       "cancelled before launch",
				Err:          ctx.Err(),
			}
		case <-timer.C:
		}
	}

	regURL := l.sched.RegistrationURL(l.baseURL)
	tokens := umb.NewSessionManager(regURL, l.pol.TokenTTL,
		l.pol.HandshakeTimeout, l.markers)
	strategy := l.newStrategy(p, regURL,
		fmt.Sprintf("race-%d-%s-%s", l.sched.ID, name, p.Kind))

	ctrl := NewController(l.sched, p.Profile, strategy, tokens, l.target, l.pol)
	return ctrl.Run(ctx)
}

func (l *Launcher) defaultStrategy(p Participant, regURL, name string) Strategy {
	if p.Kind == KindBrowser {
		return NewBrowser(regURL, l.markers, l.snaps, name)
	}
	return NewFastHTTP(regURL, l.markers)
}
