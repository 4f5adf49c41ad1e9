/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package umb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Verdict classifies a single submission response.
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictRejected
	VerdictTransient
	VerdictFatal
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictRejected:
		return "rejected"
	case VerdictTransient:
		return "transient"
	case VerdictFatal:
		return "fatal"
	}
	return "?"
}

// Classification is the outcome of classifying one submission response.
type Classification struct {
	Verdict Verdict
	// Reason explains rejected/transient/fatal verdicts.
	Reason string
	// Ref is the confirmation reference on accepted verdicts.
	Ref string
}

// Markers are the endpoint-specific body and URL fragments used to tell
// acceptance, rejection, and transient failures apart. The endpoint
// publishes no machine-readable status, so this split is configuration,
// not a hardcoded rule. All phrases are matched case-insensitively.
type Markers struct {
	// Success phrases indicating the registration was recorded.
	Success []string
	// Rejection phrases indicating an authoritative refusal.
	Rejection []string

	// FormField is a field name whose presence identifies the
	// registration form itself (open and accepting input).
	FormField string
	// SubmitField is the form's submit button name.
	SubmitField string
	// ClosedText marks the endpoint's "registration not open" page.
	ClosedText string
	// FormPath is the registration form's URL path fragment.
	FormPath string
}

// DefaultMarkers returns the marker set observed on the UMB endpoint.
func DefaultMarkers() Markers {
	return Markers{
		Success:     []string{"success", "confirm", "registered", "inscrit", "thank", "merci"},
		Rejection:   []string{"error", "erreur", "failed", "échec", "invalid", "required"},
		FormField:   "txtLName",
		SubmitField: "btnSave",
		ClosedText:  "No Data to display",
		FormPath:    "PlayerModify.aspx",
	}
}

// FormReady reports whether body is the open registration form with its
// hidden anti-forgery fields in place.
func (m Markers) FormReady(finalURL string, body []byte) bool {
	if !strings.Contains(strings.ToLower(finalURL), strings.ToLower(m.FormPath)) {
		return false
	}
	if bytes.Contains(body, []byte(m.ClosedText)) {
		return false
	}
	return bytes.Contains(body, []byte(m.FormField)) &&
		bytes.Contains(body, []byte(m.SubmitField))
}

// Classify maps one submission response onto a verdict.
//
// 5xx statuses are transient (retryable within the grace window); other
// non-200 statuses are fatal. For 200s the body phrases decide; a bounce
// back to the populated form is an authoritative rejection, and a clean
// redirect off the form with no phrase either way is treated as accepted,
// which is the endpoint's observed post-save behavior.
func Classify(statusCode int, finalURL string, body []byte, m Markers) Classification {
	if statusCode >= 500 {
		return Classification{
			Verdict: VerdictTransient,
			Reason:  fmt.Sprintf("server error (HTTP %d)", statusCode),
		}
	}
	if statusCode != 200 {
		return Classification{
			Verdict: VerdictFatal,
			Reason:  fmt.Sprintf("unexpected HTTP status %d", statusCode),
		}
	}

	lowerBody := strings.ToLower(string(body))
	lowerURL := strings.ToLower(finalURL)

	for _, phrase := range m.Success {
		if strings.Contains(lowerBody, strings.ToLower(phrase)) ||
			strings.Contains(lowerURL, strings.ToLower(phrase)) {
			return Classification{
				Verdict: VerdictAccepted,
				Ref:     confirmationRef(body, finalURL, phrase),
			}
		}
	}
	for _, phrase := range m.Rejection {
		if strings.Contains(lowerBody, strings.ToLower(phrase)) {
			return Classification{
				Verdict: VerdictRejected,
				Reason:  fmt.Sprintf("rejection marker %q in response", phrase),
			}
		}
	}

	if strings.Contains(lowerURL, strings.ToLower(m.FormPath)) &&
		strings.Contains(lowerBody, strings.ToLower(m.FormField)) {
		return Classification{
			Verdict: VerdictRejected,
			Reason:  "returned to registration form",
		}
	}

	return Classification{
		Verdict: VerdictAccepted,
		Ref:     finalURL,
	}
}

// confirmationRef pulls a human-visible confirmation string out of the
// response when the endpoint provides one, falling back to the matched
// phrase plus the final URL.
func confirmationRef(body []byte, finalURL, phrase string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		for _, sel := range []string{"#lblMessage", "#lblStatus", ".confirmation"} {
			if txt := strings.TrimSpace(doc.Find(sel).First().Text()); txt != "" {
				return txt
			}
		}
	}
	return fmt.Sprintf("%s (%s)", phrase, finalURL)
}
