/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package notify

import (
	"strings"
	"testing"

	"github.com/umbtools/umb-racebot/race"
)

func TestNewReporter(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"https://discord.com/api/webhooks/123456/abcdef", false},
		{"https://discord.com/api/webhooks/123456/abcdef/", false},
		{"https://discord.com/api/webhooks/123456", true},
		{"https://example.org/not-a-webhook", true},
		{"", true},
	}
	for _, c := range cases {
		_, err := NewReporter(c.url)
		if c.wantErr && err == nil {
			t.Errorf("NewReporter(%q): expected error", c.url)
		}
		if !c.wantErr && err != nil {
			t.Errorf("NewReporter(%q) returned error: %v", c.url, err)
		}
	}
}

func TestSummary(t *testing.T) {
	outcomes := []race.Outcome{
		{
			Player: "Jean Dupont",
			Kind:   race.KindFastHTTP,
			Status: race.StatusSucceeded,
			Ref:    "conf-4711",
		},
		{
			Player: "Maria Silva",
			Kind:   race.KindBrowser,
			Status: race.StatusTimedOut,
			Reason: "grace window elapsed",
		},
	}

	got := Summary("World Cup 3-Cushion Ankara", outcomes)

	for _, want := range []string{
		"World Cup 3-Cushion Ankara",
		"Jean Dupont",
		"conf-4711",
		"Maria Silva",
		"grace window elapsed",
		"1/2 succeeded",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary missing %q in:\n%s", want, got)
		}
	}
}
