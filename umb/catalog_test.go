/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package umb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const testCalendarPage = `<html><body><table>
<tr><th>Tournament</th><th>Starts</th><th>Place</th></tr>
<tr>
  <td>World Cup 3-Cushion</td><td>01-May-2025</td><td>Ankara (TUR)</td>
  <td><a href="TournametDetails.aspx?id=362">details</a></td>
</tr>
<tr>
  <td>World Cup 3-Cushion</td><td>14-June-2025</td><td>Porto (POR)</td>
  <td><a href="TournametDetails.aspx?id=365">details</a></td>
</tr>
<tr>
  <td>European Grand Prix</td><td>10-May-2025</td><td>Vienna (AUT)</td>
  <td><a href="TournametDetails.aspx?id=363">details</a></td>
</tr>
<tr><td>Advertisement</td><td></td><td></td></tr>
</table></body></html>`

func TestParseCatalog(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(testCalendarPage))
	if err != nil {
		t.Fatal(err)
	}

	entries := parseCatalog(doc)
	if len(entries) != 3 {
		t.Fatalf("parseCatalog returned %d entries; want 3", len(entries))
	}

	e := entries[0]
	if e.ID != 362 {
		t.Errorf("ID = %d; want 362", e.ID)
	}
	if e.Tournament != "World Cup 3-Cushion" {
		t.Errorf("Tournament = %q", e.Tournament)
	}
	if e.Place != "Ankara (TUR)" {
		t.Errorf("Place = %q", e.Place)
	}
	if e.StartsOn.Year() != 2025 || e.StartsOn.Month() != time.May || e.StartsOn.Day() != 1 {
		t.Errorf("StartsOn = %v; want 2025-05-01", e.StartsOn)
	}
}

func TestParseTourID(t *testing.T) {
	cases := []struct {
		href string
		want int
	}{
		{"TournametDetails.aspx?id=362", 362},
		{"/public/TournametDetails.aspx?id=9&lang=en", 9},
		{"TournametDetails.aspx", 0},
		{"TournametDetails.aspx?id=abc", 0},
	}
	for _, c := range cases {
		if got := parseTourID(c.href); got != c.want {
			t.Errorf("parseTourID(%q) = %d; want %d", c.href, got, c.want)
		}
	}
}

func TestWorldCups(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	entries := []CatalogEntry{
		{ID: 1, Tournament: WorldCupName, StartsOn: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Tournament: "European Grand Prix", StartsOn: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Tournament: WorldCupName, StartsOn: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 4, Tournament: WorldCupName, StartsOn: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 5, Tournament: WorldCupName}, // unparseable date
	}

	cups := WorldCups(entries, now)
	if len(cups) != 3 {
		t.Fatalf("WorldCups returned %d entries; want 3", len(cups))
	}
	wantOrder := []int{3, 1, 5}
	for i, want := range wantOrder {
		if cups[i].ID != want {
			t.Errorf("cups[%d].ID = %d; want %d", i, cups[i].ID, want)
		}
	}
}

func TestCatalogEntryUnmarshal(t *testing.T) {
	raw := `{"id": 362, "tournament": "World Cup 3-Cushion",
		"starts_on": "01-May-2025", "place": "Ankara (TUR)"}`

	var e CatalogEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if e.ID != 362 {
		t.Errorf("ID = %d; want 362", e.ID)
	}
	if e.StartsOn.IsZero() {
		t.Error("StartsOn should be parsed")
	}

	var empty CatalogEntry
	if err := json.Unmarshal([]byte(`{"id": 1, "starts_on": ""}`), &empty); err != nil {
		t.Fatalf("unmarshal with empty date returned error: %v", err)
	}
	if !empty.StartsOn.IsZero() {
		t.Error("empty starts_on should stay zero")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tournaments.json")
	content := `{"tournaments": [
		{"id": 362, "tournament": "World Cup 3-Cushion", "starts_on": "01-May-2025"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 362 {
		t.Errorf("LoadCatalog = %+v; want single entry 362", entries)
	}
}

func TestRegistrationURL(t *testing.T) {
	ts := TournamentSchedule{ID: 362}

	got := ts.RegistrationURL("")
	want := "https://files.umb-carom.org/public/PlayerModify.aspx?tourID=362"
	if got != want {
		t.Errorf("RegistrationURL = %q; want %q", got, want)
	}

	got = ts.RegistrationURL("http://127.0.0.1:8080")
	if got != "http://127.0.0.1:8080/PlayerModify.aspx?tourID=362" {
		t.Errorf("RegistrationURL with base = %q", got)
	}
}
