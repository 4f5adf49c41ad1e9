/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"fmt"
	"strings"
	"time"
)

// Status is the final classification of one registration attempt.
type Status int

const (
	StatusSucceeded Status = iota
	StatusRejected
	StatusTimedOut
	StatusFailed
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusRejected:
		return "rejected"
	case StatusTimedOut:
		return "timedout"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	}
	return "?"
}

// State is a race controller's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateMonitoring
	StateArmed
	StateFiring
	StateVerifying
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "?"
}

// AttemptEvent is one timestamped sub-event of an attempt: a state
// transition, token refresh, submission, or response.
type AttemptEvent struct {
	At     time.Time
	Name   string
	Detail string
}

// Attempt is the mutable record of one participant's race execution.
// Created at controller start, mutated only by that controller, and
// finalized exactly once.
type Attempt struct {
	ID           string
	TournamentID int
	Player       string
	Kind         Kind
	StartedAt    time.Time
	FinishedAt   time.Time
	Events       []AttemptEvent
}

func newAttempt(tournamentID int, player string, kind Kind) *Attempt {
	slug := strings.ToLower(strings.ReplaceAll(player, " ", "-"))
	return &Attempt{
		ID:           fmt.Sprintf("race-%d-%s-%s", tournamentID, slug, kind),
		TournamentID: tournamentID,
		Player:       player,
		Kind:         kind,
		StartedAt:    time.Now(),
	}
}

func (a *Attempt) record(name, detail string) {
	a.Events = append(a.Events, AttemptEvent{
		At:     time.Now(),
		Name:   name,
		Detail: detail,
	})
}

// Outcome is the immutable result of one attempt, produced exactly once.
type Outcome struct {
	AttemptID    string
	TournamentID int
	Player       string
	Kind         Kind
	Status       Status

	// Ref is the confirmation reference when Status is Succeeded.
	Ref string
	// SnapshotRef points at a diagnostic page snapshot, when one was
	// captured by a browser-driven attempt.
	SnapshotRef string
	// Reason explains any non-succeeded status.
	Reason string
	Err    error

	StartedAt  time.Time
	FinishedAt time.Time
	Events     []AttemptEvent
}

// Tally summarizes an outcome list for exit-status mapping.
func Tally(outcomes []Outcome) (succeeded, total int) {
	for _, out := range outcomes {
		if out.Status == StatusSucceeded {
			succeeded++
		}
	}
	return succeeded, len(outcomes)
}
