/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/umbtools/umb-racebot/internal"
	"github.com/umbtools/umb-racebot/umb"
)

const maxResponseBody = 4 << 20

// FastHTTP submits the registration as a single raw form POST through the
// session's own cookie-jar client, echoing the anti-forgery tokens back
// verbatim. One request per Submit call, no internal retries.
type FastHTTP struct {
	regURL  string
	markers umb.Markers
}

func NewFastHTTP(regURL string, markers umb.Markers) *FastHTTP {
	return &FastHTTP{regURL: regURL, markers: markers}
}

func (s *FastHTTP) Kind() Kind {
	return KindFastHTTP
}

func (s *FastHTTP) Submit(ctx context.Context, sess *umb.SessionState,
	player umb.PlayerProfile) SubmissionResult {

	if sess == nil || sess.Client() == nil {
		return SubmissionResult{
			Verdict: umb.VerdictFatal,
			Reason:  "no session state to submit with",
		}
	}

	form := sess.FormTokens()
	for name, vals := range player.FormValues() {
		form[name] = vals
	}
	form.Set(s.markers.SubmitField, "Submit")

	req, err := http.NewRequestWithContext(ctx, "POST", s.regURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return SubmissionResult{
			Verdict: umb.VerdictFatal,
			Reason:  "building submission request",
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", internal.UserAgent)
	req.Header.Set("Referer", s.regURL)
	if origin := originOf(s.regURL); origin != "" {
		req.Header.Set("Origin", origin)
	}

	resp, err := sess.Client().Do(req)
	if err != nil {
		// network hiccups and timeouts are retryable within the grace
		// window; the controller decides
		return SubmissionResult{
			Verdict: umb.VerdictTransient,
			Reason:  "submission request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return SubmissionResult{
			Verdict: umb.VerdictTransient,
			Reason:  "reading submission response",
			Err:     err,
		}
	}

	finalURL := s.regURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	cls := umb.Classify(resp.StatusCode, finalURL, body, s.markers)
	return SubmissionResult{
		Verdict: cls.Verdict,
		Reason:  cls.Reason,
		Ref:     cls.Ref,
	}
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
