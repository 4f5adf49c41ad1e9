/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/umbtools/umb-racebot/umb"
)

// Controller drives one registration attempt through the
// idle → monitoring → armed → firing → verifying → done lifecycle around
// the target instant. One controller per (player, strategy) pair; it owns
// its attempt record and token source exclusively.
type Controller struct {
	sched    umb.TournamentSchedule
	player   umb.PlayerProfile
	strategy Strategy
	tokens   TokenSource
	target   Target
	pol      Policy

	state   State
	attempt *Attempt
}

func NewController(sched umb.TournamentSchedule, player umb.PlayerProfile,
	strategy Strategy, tokens TokenSource, target Target, pol Policy) *Controller {

	return &Controller{
		sched:    sched,
		player:   player,
		strategy: strategy,
		tokens:   tokens,
		target:   target,
		pol:      pol.withDefaults(),
		state:    StateIdle,
	}
}

// Run executes the attempt to completion and returns its outcome. It
// never panics outward; any fault is captured into an aborted outcome.
// Cancellation while monitoring or armed aborts immediately; an in-flight
// submission is always allowed to complete and its result recorded.
func (c *Controller) Run(ctx context.Context) (out Outcome) {
	c.attempt = newAttempt(c.sched.ID, c.player.DisplayName(), c.strategy.Kind())
	if c.target.Warning != "" {
		log.Printf("race.ctrl: %s: warning: %s", c.attempt.ID, c.target.Warning)
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("attempt fault: %v", r)
			out = c.finalize(StatusAborted, SubmissionResult{
				Reason: err.Error(),
				Err:    err,
			})
		}
	}()

	c.transition(StateMonitoring)
	if err := c.monitor(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return c.finalize(StatusAborted, SubmissionResult{
				Reason: "cancelled while monitoring",
				Err:    err,
			})
		}
		return c.finalize(StatusFailed, SubmissionResult{
			Reason: "no usable session at arm time",
			Err:    err,
		})
	}

	c.transition(StateArmed)
	if err := c.waitUntil(ctx, c.target.OpenAt, c.pol.SpinStep); err != nil {
		return c.finalize(StatusAborted, SubmissionResult{
			Reason: "cancelled while armed",
			Err:    err,
		})
	}

	c.transition(StateFiring)
	return c.fire(ctx)
}

// monitor waits for the monitoring window, then polls until the attempt
// should arm, opportunistically refreshing tokens that would expire
// before the next poll. Session acquisition failures are retried for the
// whole window; only arriving at arm time with no session is fatal.
func (c *Controller) monitor(ctx context.Context) error {
	if err := c.waitUntil(ctx, c.target.MonitorFrom, c.pol.PollInterval); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(c.pol.PollInterval), 1)
	var lastAcqErr error
	for {
		now := time.Now()
		if c.target.OpenAt.Sub(now) <= c.pol.ArmThreshold {
			// arming; stop refreshing so we can't invalidate the tokens
			// we are about to use
			if c.tokens.Current() == nil {
				// a late start reaches arm time before the first poll
				// ever ran; the attempt is still owed one acquisition
				if _, err := c.tokens.Refresh(ctx); err != nil {
					if errors.Is(err, context.Canceled) ||
						errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					lastAcqErr = err
				}
			}
			if c.tokens.Current() == nil {
				if lastAcqErr != nil {
					return lastAcqErr
				}
				return fmt.Errorf("%w: no session acquired before arm",
					umb.ErrSessionAcquisition)
			}
			return nil
		}

		if !c.tokens.IsFresh(now.Add(c.pol.PollInterval)) {
			if _, err := c.tokens.Refresh(ctx); err != nil {
				switch {
				case errors.Is(err, context.Canceled),
					errors.Is(err, context.DeadlineExceeded):
					return err
				case errors.Is(err, umb.ErrFormClosed):
					// normal before the open instant; the form appears
					// when registration opens
					c.attempt.record("poll", "form not open")
				default:
					lastAcqErr = err
					c.attempt.record("token_refresh_failed", err.Error())
					log.Printf("race.ctrl: %s: token refresh failed: %v",
						c.attempt.ID, err)
				}
			} else {
				lastAcqErr = nil
				c.attempt.record("token_refresh", "session tokens refreshed")
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			// the limiter errors both when ctx is done and when the next
			// token cannot arrive before ctx's deadline
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return context.DeadlineExceeded
		}
	}
}

// fire submits through the strategy, retrying transient failures with
// minimal backoff while inside the grace window. The grace deadline beats
// any remaining retry budget. A rejected response is authoritative and
// never retried; the first accepted response wins.
func (c *Controller) fire(ctx context.Context) Outcome {
	deadline := c.target.OpenAt.Add(c.pol.Grace)
	if now := time.Now(); deadline.Before(now) {
		// late attempt; the grace window runs from firing time instead
		deadline = now.Add(c.pol.Grace)
	}
	retries := 0

	for {
		// the in-flight submission runs under a timeout-only context:
		// an already-sent registration must not be discarded by
		// operator cancellation
		subCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
			c.pol.SubmitTimeout)
		c.attempt.record("submit_sent", fmt.Sprintf("try %d", retries+1))
		res := c.strategy.Submit(subCtx, c.tokens.Current(), c.player)
		cancel()
		c.attempt.record("response", res.Verdict.String())

		switch res.Verdict {
		case umb.VerdictAccepted:
			c.transition(StateVerifying)
			return c.finalize(StatusSucceeded, res)
		case umb.VerdictRejected:
			c.transition(StateVerifying)
			return c.finalize(StatusRejected, res)
		case umb.VerdictFatal:
			c.transition(StateVerifying)
			return c.finalize(StatusFailed, res)
		}

		// transient
		if !time.Now().Before(deadline) {
			c.transition(StateVerifying)
			res.Reason = "grace window elapsed: " + res.Reason
			return c.finalize(StatusTimedOut, res)
		}
		if retries >= c.pol.MaxRetries {
			c.transition(StateVerifying)
			res.Reason = "retry budget exhausted: " + res.Reason
			return c.finalize(StatusFailed, res)
		}
		retries++
		log.Printf("race.ctrl: %s: transient failure, retry %d/%d: %s",
			c.attempt.ID, retries, c.pol.MaxRetries, res.Reason)

		// a retry is a new submission; cancellation may stop it
		timer := time.NewTimer(c.pol.RetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.transition(StateVerifying)
			res.Reason = "cancelled before retry"
			res.Err = ctx.Err()
			return c.finalize(StatusAborted, res)
		case <-timer.C:
		}
	}
}

// waitUntil sleeps toward t in step-sized slices so cancellation stays
// responsive and, with a small step, overshoot past t stays bounded.
func (c *Controller) waitUntil(ctx context.Context, t time.Time, step time.Duration) error {
	if step <= 0 {
		step = time.Millisecond
	}
	for {
		d := time.Until(t)
		if d <= 0 {
			return nil
		}
		if d > step {
			d = step
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Controller) transition(next State) {
	prev := c.state
	c.state = next
	c.attempt.record("transition", fmt.Sprintf("%s -> %s", prev, next))
	log.Printf("race.ctrl: %s: %s -> %s", c.attempt.ID, prev, next)
}

func (c *Controller) finalize(status Status, res SubmissionResult) Outcome {
	if status == StatusAborted {
		c.transition(StateAborted)
	} else {
		c.transition(StateDone)
	}
	c.attempt.FinishedAt = time.Now()
	log.Printf("race.ctrl: %s: finalized %s in %v", c.attempt.ID, status,
		c.attempt.FinishedAt.Sub(c.attempt.StartedAt).Round(time.Millisecond))

	return Outcome{
		AttemptID:    c.attempt.ID,
		TournamentID: c.attempt.TournamentID,
		Player:       c.attempt.Player,
		Kind:         c.attempt.Kind,
		Status:       status,
		Ref:          res.Ref,
		SnapshotRef:  res.SnapshotRef,
		Reason:       res.Reason,
		Err:          res.Err,
		StartedAt:    c.attempt.StartedAt,
		FinishedAt:   c.attempt.FinishedAt,
		Events:       c.attempt.Events,
	}
}
