/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package umb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/umbtools/umb-racebot/internal"
)

// WorldCupName is the catalog name of the tournaments the registration
// race targets.
const WorldCupName = "World Cup 3-Cushion"

// FetchCatalog fetches the tournament calendar page and returns its rows.
// client should normally be internal.NewCachedHTTPClient so repeated runs
// don't hammer the calendar.
func FetchCatalog(ctx context.Context, client *http.Client, baseURL string) ([]CatalogEntry, error) {
	if baseURL == "" {
		baseURL = internal.BaseURL
	}
	url := baseURL + "/Calender.aspx"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch umb catalog (new): %w", err)
	}
	req.Header.Set("User-Agent", internal.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch umb catalog (do): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to fetch umb catalog (http): %v",
			resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse umb catalog: %w", err)
	}

	return parseCatalog(doc), nil
}

// parseCatalog extracts catalog entries from the calendar table. Rows
// link to TournametDetails.aspx?id=<N>; rows without such a link (header
// rows, ad rows) are skipped.
func parseCatalog(doc *goquery.Document) []CatalogEntry {
	var entries []CatalogEntry
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		href, ok := row.Find("a[href*='TournametDetails.aspx']").Attr("href")
		if !ok {
			return
		}
		id := parseTourID(href)
		if id == 0 {
			return
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		dateStr := strings.TrimSpace(cells.Eq(1).Text())
		place := strings.TrimSpace(cells.Eq(2).Text())

		startsOn, err := internal.ParseDateOrZero(dateStr)
		if err != nil {
			// malformed date rows are still listed, just unsortable
			startsOn = time.Time{}
		}

		entries = append(entries, CatalogEntry{
			ID:         id,
			Tournament: name,
			StartsOn:   startsOn,
			Place:      place,
			URL:        href,
		})
	})

	return entries
}

// parseTourID extracts the id query parameter from a details link like
// "TournametDetails.aspx?id=362".
func parseTourID(href string) int {
	idx := strings.LastIndex(href, "id=")
	if idx == -1 {
		return 0
	}
	val := href[idx+len("id="):]
	if amp := strings.IndexByte(val, '&'); amp != -1 {
		val = val[:amp]
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return id
}

// LoadCatalog reads the scraper's tournaments.json dump.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read catalog %s: %w", path, err)
	}

	var dump struct {
		Tournaments []CatalogEntry `json:"tournaments"`
	}
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("unable to parse catalog %s: %w", path, err)
	}

	return dump.Tournaments, nil
}

// WorldCups filters entries down to future World Cup 3-Cushion tournaments
// sorted by start date. Entries with unparseable dates sort last.
func WorldCups(entries []CatalogEntry, now time.Time) []CatalogEntry {
	var cups []CatalogEntry
	for _, e := range entries {
		if e.Tournament != WorldCupName {
			continue
		}
		if !e.StartsOn.IsZero() && e.StartsOn.Before(now) {
			continue
		}
		cups = append(cups, e)
	}

	sort.Slice(cups, func(i, j int) bool {
		a, b := cups[i].StartsOn, cups[j].StartsOn
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.Before(b)
	})

	return cups
}
