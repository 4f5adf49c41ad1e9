/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"context"
	"fmt"
	"time"

	"github.com/umbtools/umb-racebot/umb"
)

// Kind selects which submission strategy an attempt uses.
type Kind int

const (
	// KindFastHTTP submits the raw form POST directly. Low tens of
	// milliseconds per attempt; requires the endpoint to behave as
	// observed.
	KindFastHTTP Kind = iota
	// KindBrowser drives a headless browser through the form. Slower,
	// but tolerates endpoint changes the raw POST cannot.
	KindBrowser
)

func (k Kind) String() string {
	if k == KindBrowser {
		return "browser"
	}
	return "fasthttp"
}

// ParseKind accepts the CLI/config spellings of both strategies,
// including the legacy "curl" and "selenium" names.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "fast", "fasthttp", "http", "curl":
		return KindFastHTTP, nil
	case "browser", "selenium":
		return KindBrowser, nil
	}
	return KindFastHTTP, fmt.Errorf("unknown strategy %q", s)
}

// SubmissionResult is the outcome of exactly one submission interaction.
type SubmissionResult struct {
	Verdict umb.Verdict
	// Reason explains rejected/transient/fatal verdicts.
	Reason string
	// Ref is the confirmation reference on accepted verdicts.
	Ref string
	// SnapshotRef references a diagnostic page snapshot, if captured.
	SnapshotRef string
	Err         error
}

// Strategy performs a single registration submission. Implementations
// make exactly one network/browser interaction per Submit call and never
// retry internally; retries belong to the race controller, so Submit is
// at-most-one-attempt and safe to call repeatedly.
type Strategy interface {
	Kind() Kind
	Submit(ctx context.Context, sess *umb.SessionState, player umb.PlayerProfile) SubmissionResult
}

// TokenSource is the session lifecycle surface the controller drives.
// *umb.SessionManager implements it.
type TokenSource interface {
	Acquire(ctx context.Context) (*umb.SessionState, error)
	Refresh(ctx context.Context) (*umb.SessionState, error)
	Current() *umb.SessionState
	IsFresh(now time.Time) bool
}

// Snapshotter persists diagnostic page snapshots; *s3store.Store
// implements it.
type Snapshotter interface {
	SaveSnapshot(name string, html []byte) (string, error)
}
