/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package race

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/umbtools/umb-racebot/umb"
)

const registrationFormPage = `<html><body>
<form method="post" action="PlayerModify.aspx?tourID=362">
<input type="hidden" name="__VIEWSTATE" value="vs-race" />
<input type="hidden" name="__EVENTVALIDATION" value="ev-race" />
<input type="hidden" name="__VIEWSTATEGENERATOR" value="vsg-race" />
<input type="text" name="txtLName" />
<input type="submit" name="btnSave" value="Submit" />
</form>
</body></html>`

func registrationServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/PlayerModify.aspx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, registrationFormPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func launchPlayer(last string, kind Kind) Participant {
	return Participant{
		Profile: umb.PlayerProfile{
			Federation: "FFB",
			LastName:   last,
			FirstName:  "Test",
			Email:      "test@example.org",
		},
		Kind: kind,
	}
}

// scriptStrategies swaps the production strategies for scripted ones,
// keyed by the participant's last name.
func scriptStrategies(l *Launcher, byPlayer map[string]*scriptStrategy) {
	l.newStrategy = func(p Participant, regURL, name string) Strategy {
		return byPlayer[p.Profile.LastName]
	}
}

func TestLauncherOutcomePerParticipant(t *testing.T) {
	srv := registrationServer(t)

	participants := []Participant{
		launchPlayer("Alpha", KindFastHTTP),
		launchPlayer("Bravo", KindFastHTTP),
		launchPlayer("Charlie", KindFastHTTP),
	}
	strategies := map[string]*scriptStrategy{
		"Alpha":   {verdicts: []umb.Verdict{umb.VerdictAccepted}},
		"Bravo":   {verdicts: []umb.Verdict{umb.VerdictAccepted}, panicOn: 1},
		"Charlie": {verdicts: []umb.Verdict{umb.VerdictAccepted}},
	}

	l := NewLauncher(testSchedule(), testTarget(60*time.Millisecond),
		testPolicy(), umb.DefaultMarkers(), participants)
	l.SetBaseURL(srv.URL)
	scriptStrategies(l, strategies)

	outcomes := l.Run(context.Background())
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes; want 3", len(outcomes))
	}

	wantOrder := []string{"Test Alpha", "Test Bravo", "Test Charlie"}
	for i, want := range wantOrder {
		if outcomes[i].Player != want {
			t.Errorf("outcomes[%d].Player = %q; want %q", i, outcomes[i].Player, want)
		}
	}

	if outcomes[0].Status != StatusSucceeded {
		t.Errorf("Alpha status = %s (%s); want succeeded",
			outcomes[0].Status, outcomes[0].Reason)
	}
	if outcomes[1].Status != StatusAborted {
		t.Errorf("Bravo status = %s; want aborted after its strategy fault",
			outcomes[1].Status)
	}
	if outcomes[2].Status != StatusSucceeded {
		t.Errorf("Charlie status = %s (%s); faulting sibling must not disturb it",
			outcomes[2].Status, outcomes[2].Reason)
	}
}

func TestLauncherMixedStrategies(t *testing.T) {
	srv := registrationServer(t)

	participants := []Participant{
		launchPlayer("Fast", KindFastHTTP),
		launchPlayer("Slow", KindBrowser),
	}
	strategies := map[string]*scriptStrategy{
		"Fast": {kind: KindFastHTTP, verdicts: []umb.Verdict{umb.VerdictAccepted}},
		"Slow": {kind: KindBrowser, verdicts: []umb.Verdict{umb.VerdictAccepted}},
	}

	l := NewLauncher(testSchedule(), testTarget(60*time.Millisecond),
		testPolicy(), umb.DefaultMarkers(), participants)
	l.SetBaseURL(srv.URL)
	scriptStrategies(l, strategies)

	outcomes := l.Run(context.Background())
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes; want 2", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Status != StatusSucceeded {
			t.Errorf("outcomes[%d] status = %s (%s); want succeeded",
				i, out.Status, out.Reason)
		}
	}
	if outcomes[0].Kind != KindFastHTTP || outcomes[1].Kind != KindBrowser {
		t.Errorf("outcome kinds = %s, %s; want fasthttp, browser",
			outcomes[0].Kind, outcomes[1].Kind)
	}
	if outcomes[0].Player != "Test Fast" || outcomes[1].Player != "Test Slow" {
		t.Errorf("outcome order = %q, %q; want request order",
			outcomes[0].Player, outcomes[1].Player)
	}
}

func TestLauncherCancelled(t *testing.T) {
	srv := registrationServer(t)

	participants := []Participant{
		launchPlayer("Alpha", KindFastHTTP),
		launchPlayer("Bravo", KindFastHTTP),
	}
	strategies := map[string]*scriptStrategy{
		"Alpha": {verdicts: []umb.Verdict{umb.VerdictAccepted}},
		"Bravo": {verdicts: []umb.Verdict{umb.VerdictAccepted}},
	}

	l := NewLauncher(testSchedule(), testTarget(time.Hour),
		testPolicy(), umb.DefaultMarkers(), participants)
	l.SetBaseURL(srv.URL)
	scriptStrategies(l, strategies)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := l.Run(ctx)
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes; want 2", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Status != StatusAborted {
			t.Errorf("outcomes[%d] status = %s; want aborted", i, out.Status)
		}
		if strategies[participants[i].Profile.LastName].submitCount() != 0 {
			t.Errorf("outcomes[%d]: cancelled attempt still submitted", i)
		}
	}
}

func TestLauncherStagger(t *testing.T) {
	srv := registrationServer(t)

	participants := []Participant{
		launchPlayer("Alpha", KindFastHTTP),
		launchPlayer("Bravo", KindFastHTTP),
	}
	strategies := map[string]*scriptStrategy{
		"Alpha": {verdicts: []umb.Verdict{umb.VerdictAccepted}},
		"Bravo": {verdicts: []umb.Verdict{umb.VerdictAccepted}},
	}

	pol := testPolicy()
	pol.Stagger = 20 * time.Millisecond

	l := NewLauncher(testSchedule(), testTarget(80*time.Millisecond),
		pol, umb.DefaultMarkers(), participants)
	l.SetBaseURL(srv.URL)
	scriptStrategies(l, strategies)

	outcomes := l.Run(context.Background())
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes; want 2", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Status != StatusSucceeded {
			t.Fatalf("outcomes[%d] status = %s (%s); want succeeded",
				i, out.Status, out.Reason)
		}
	}
	gap := outcomes[1].StartedAt.Sub(outcomes[0].StartedAt)
	if gap < 15*time.Millisecond {
		t.Errorf("launch gap = %v; want at least the 20ms stagger", gap)
	}
}

func TestLauncherDefaultStrategyKind(t *testing.T) {
	l := NewLauncher(testSchedule(), testTarget(time.Hour),
		testPolicy(), umb.DefaultMarkers(), nil)

	for _, kind := range []Kind{KindFastHTTP, KindBrowser} {
		s := l.defaultStrategy(launchPlayer("Any", kind),
			"http://127.0.0.1:1/PlayerModify.aspx?tourID=362", "race-362-any")
		if s.Kind() != kind {
			t.Errorf("defaultStrategy(%s).Kind() = %s; want the requested kind",
				kind, s.Kind())
		}
	}
}

func TestTally(t *testing.T) {
	outcomes := []Outcome{
		{Status: StatusSucceeded},
		{Status: StatusRejected},
		{Status: StatusSucceeded},
		{Status: StatusAborted},
	}
	succeeded, total := Tally(outcomes)
	if succeeded != 2 || total != 4 {
		t.Errorf("Tally = %d/%d; want 2/4", succeeded, total)
	}
}
