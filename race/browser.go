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
	"net/http"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/umbtools/umb-racebot/umb"
)

// settleDelay after clicking submit before reading the resulting page;
// the endpoint renders its save status on the postback.
const settleDelay = 1500 * time.Millisecond

// Browser drives a headless Chrome session through the registration form.
// Slower than FastHTTP but it executes the endpoint's scripts, so it
// survives form changes the raw POST cannot. The browser establishes its
// own session with the endpoint; the SessionState argument is unused
// beyond confirming the form was reachable.
type Browser struct {
	regURL  string
	markers umb.Markers
	// snaps receives a diagnostic page snapshot on fatal errors; when
	// nil, snapshots fall back to local files.
	snaps Snapshotter
	// name keys stored snapshots, normally the attempt id.
	name     string
	headless bool
}

func NewBrowser(regURL string, markers umb.Markers, snaps Snapshotter, name string) *Browser {
	return &Browser{
		regURL:   regURL,
		markers:  markers,
		snaps:    snaps,
		name:     name,
		headless: true,
	}
}

func (s *Browser) Kind() Kind {
	return KindBrowser
}

func (s *Browser) Submit(ctx context.Context, sess *umb.SessionState,
	player umb.PlayerProfile) SubmissionResult {

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	formSel := fmt.Sprintf(`input[name=%q]`, s.markers.FormField)
	submitSel := fmt.Sprintf(`[name=%q]`, s.markers.SubmitField)

	actions := []chromedp.Action{
		chromedp.Navigate(s.regURL),
		chromedp.WaitVisible(formSel, chromedp.ByQuery),
	}
	// selects and inputs both take SetValue; empty optional fields are
	// left untouched
	for name, vals := range player.FormValues() {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		sel := fmt.Sprintf(`[name=%q]`, name)
		actions = append(actions,
			chromedp.SetValue(sel, vals[0], chromedp.ByQuery))
	}

	var finalURL, html string
	actions = append(actions,
		chromedp.Click(submitSel, chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return SubmissionResult{
				Verdict: umb.VerdictTransient,
				Reason:  "browser submission timed out",
				Err:     err,
			}
		}
		res := SubmissionResult{
			Verdict: umb.VerdictFatal,
			Reason:  "browser submission failed",
			Err:     err,
		}
		res.SnapshotRef = s.snapshot(taskCtx)
		return res
	}

	cls := umb.Classify(http.StatusOK, finalURL, []byte(html), s.markers)
	res := SubmissionResult{
		Verdict: cls.Verdict,
		Reason:  cls.Reason,
		Ref:     cls.Ref,
	}
	if cls.Verdict == umb.VerdictFatal {
		res.SnapshotRef = s.save([]byte(html))
	}
	return res
}

// snapshot best-effort captures whatever page the browser is on after a
// failed run. The task context may already be unusable; that's fine.
func (s *Browser) snapshot(taskCtx context.Context) string {
	var html string
	capCtx, cancel := context.WithTimeout(taskCtx, 2*time.Second)
	defer cancel()
	if err := chromedp.Run(capCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return ""
	}
	return s.save([]byte(html))
}

func (s *Browser) save(html []byte) string {
	if len(html) == 0 {
		return ""
	}
	if s.snaps != nil {
		ref, err := s.snaps.SaveSnapshot(s.name, html)
		if err == nil {
			return ref
		}
		log.Printf("race.browser: snapshot upload failed: %v", err)
	}

	// local fallback so the diagnostic isn't lost
	path := fmt.Sprintf("%s-%s.html", s.name,
		time.Now().Format("20060102T150405"))
	if err := os.WriteFile(path, html, 0644); err != nil {
		log.Printf("race.browser: local snapshot write failed: %v", err)
		return ""
	}
	return path
}
