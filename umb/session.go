/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package umb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/umbtools/umb-racebot/internal"
)

var (
	// ErrSessionAcquisition: endpoint unreachable or handshake response
	// malformed (missing anti-forgery tokens on an open form).
	ErrSessionAcquisition = errors.New("session acquisition failed")

	// ErrFormClosed: the endpoint answered but registration is not open
	// yet. Normal while monitoring before the target instant.
	ErrFormClosed = errors.New("registration form not open")
)

// maxHandshakeBody bounds how much of a handshake response is read.
// ASP.NET view state blobs run large but never near this.
const maxHandshakeBody = 4 << 20

// SessionState is one acquired anti-forgery state: the hidden ASP.NET
// tokens plus the cookie-jar client they are bound to. The tokens must be
// echoed back verbatim through the same jar or the endpoint discards the
// submission.
type SessionState struct {
	ViewState          string
	EventValidation    string
	ViewStateGenerator string

	AcquiredAt time.Time
	// Deadline is the freshness cutoff; past it the tokens are assumed
	// expired server-side.
	Deadline time.Time

	client *http.Client
}

// Client returns the cookie-jar client this state is bound to.
func (st *SessionState) Client() *http.Client {
	return st.client
}

// FormTokens returns the hidden fields a submission must echo back.
func (st *SessionState) FormTokens() url.Values {
	return url.Values{
		"__VIEWSTATE":          {st.ViewState},
		"__EVENTVALIDATION":    {st.EventValidation},
		"__VIEWSTATEGENERATOR": {st.ViewStateGenerator},
		"__EVENTTARGET":        {""},
		"__EVENTARGUMENT":      {""},
	}
}

// SessionManager maintains a valid SessionState for a single registration
// attempt. One manager per attempt; never shared between concurrent
// attempts, since the endpoint binds tokens to the session cookie.
//
// The manager only acquires and answers freshness; when to refresh is the
// race controller's call, because fetching too early risks expiry at fire
// time and fetching too late risks missing the window.
type SessionManager struct {
	regURL  string
	ttl     time.Duration
	timeout time.Duration
	markers Markers

	cur *SessionState
}

// NewSessionManager returns a manager for the given registration URL.
// ttl is how long acquired tokens are considered fresh; timeout bounds
// each handshake request.
func NewSessionManager(regURL string, ttl, timeout time.Duration, m Markers) *SessionManager {
	return &SessionManager{
		regURL:  regURL,
		ttl:     ttl,
		timeout: timeout,
		markers: m,
	}
}

// Acquire performs the handshake: GET the registration form and extract
// the hidden anti-forgery fields into a fresh session. Returns
// ErrFormClosed while the endpoint still redirects or shows its
// "no data" page, and ErrSessionAcquisition on unreachable endpoints or
// token-less form responses.
func (sm *SessionManager) Acquire(ctx context.Context) (*SessionState, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cookie jar: %v", ErrSessionAcquisition, err)
	}
	client := &http.Client{Jar: jar, Timeout: sm.timeout}

	req, err := http.NewRequestWithContext(ctx, "GET", sm.regURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", ErrSessionAcquisition, err)
	}
	req.Header.Set("User-Agent", internal.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionAcquisition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http status %d", ErrSessionAcquisition,
			resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHandshakeBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSessionAcquisition, err)
	}

	finalURL := sm.regURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	if !sm.markers.FormReady(finalURL, body) {
		return nil, fmt.Errorf("%w (at %s)", ErrFormClosed, finalURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse form: %v", ErrSessionAcquisition, err)
	}

	st := &SessionState{
		ViewState:          hiddenValue(doc, "__VIEWSTATE"),
		EventValidation:    hiddenValue(doc, "__EVENTVALIDATION"),
		ViewStateGenerator: hiddenValue(doc, "__VIEWSTATEGENERATOR"),
		client:             client,
	}
	if st.ViewState == "" || st.EventValidation == "" {
		return nil, fmt.Errorf("%w: anti-forgery tokens missing from form",
			ErrSessionAcquisition)
	}

	now := time.Now()
	st.AcquiredAt = now
	st.Deadline = now.Add(sm.ttl)

	sm.replace(st)
	return st, nil
}

// Refresh discards the current session and acquires a new one. Idempotent
// and callable repeatedly; old sessions are dropped, not leaked.
func (sm *SessionManager) Refresh(ctx context.Context) (*SessionState, error) {
	return sm.Acquire(ctx)
}

// Current returns the most recently acquired session, or nil.
func (sm *SessionManager) Current() *SessionState {
	return sm.cur
}

// IsFresh reports whether the held tokens are still within the freshness
// deadline of the most recent acquisition. Never true after the deadline.
func (sm *SessionManager) IsFresh(now time.Time) bool {
	return sm.cur != nil && now.Before(sm.cur.Deadline)
}

func (sm *SessionManager) replace(st *SessionState) {
	if sm.cur != nil && sm.cur.client != nil {
		sm.cur.client.CloseIdleConnections()
	}
	sm.cur = st
}

func hiddenValue(doc *goquery.Document, name string) string {
	val, _ := doc.Find(fmt.Sprintf("input[name=%q]", name)).Attr("value")
	return val
}
