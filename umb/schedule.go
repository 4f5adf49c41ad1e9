/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package umb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/umbtools/umb-racebot/internal"
)

// TournamentSchedule is the normalized schedule input the race core runs
// against. Immutable once handed to a race.
type TournamentSchedule struct {
	ID        int
	Name      string
	Place     string
	StartDate time.Time
	Zone      *time.Location
}

// RegistrationURL returns the endpoint's player registration form URL for
// this tournament. baseURL overrides the production site root when
// non-empty (used for testing against local mirrors).
func (ts TournamentSchedule) RegistrationURL(baseURL string) string {
	if baseURL == "" {
		baseURL = internal.BaseURL
	}
	return fmt.Sprintf("%s/PlayerModify.aspx?tourID=%d", baseURL, ts.ID)
}

// DetailsURL returns the tournament details page URL. The path segment
// preserves the endpoint's own misspelling.
func (ts TournamentSchedule) DetailsURL(baseURL string) string {
	if baseURL == "" {
		baseURL = internal.BaseURL
	}
	return fmt.Sprintf("%s/TournametDetails.aspx?id=%d", baseURL, ts.ID)
}

// CatalogEntry represents one tournament row from the UMB catalog, as
// vended by the scraper's tournaments.json dump and by the calendar page.
type CatalogEntry struct {
	ID         int       `json:"id"`
	Tournament string    `json:"tournament"`
	StartsOn   time.Time `json:"starts_on"`
	Place      string    `json:"place"`
	URL        string    `json:"url"`

	// RegistrationStart is the catalog's display string for when
	// registration opens, when known. The race core never trusts it; the
	// open instant is always derived from StartsOn.
	RegistrationStart string `json:"registration_start"`
}

// Schedule converts a catalog entry into the race core's schedule input.
func (e CatalogEntry) Schedule(zone *time.Location) TournamentSchedule {
	return TournamentSchedule{
		ID:        e.ID,
		Name:      e.Tournament,
		Place:     e.Place,
		StartDate: e.StartsOn,
		Zone:      zone,
	}
}

// Custom unmarshaller to handle the catalog's "02-May-2025"-style
// timestamps, "null", and empty strings.
func (e *CatalogEntry) UnmarshalJSON(data []byte) error {
	type Alias CatalogEntry
	aux := &struct {
		StartsOn string `json:"starts_on"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("CatalogEntry unmarshal: %w", err)
	}
	var err error
	e.StartsOn, err = internal.ParseDateOrZero(aux.StartsOn)
	if err != nil {
		return fmt.Errorf("parsing CatalogEntry.StartsOn: %w", err)
	}
	return nil
}
