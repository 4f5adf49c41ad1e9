/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package umb

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// PlayerProfile holds the personal data the registration form requires.
// Owned by configuration; the race core only reads it.
type PlayerProfile struct {
	Federation  string `json:"federation"`
	LastName    string `json:"lastName"`
	FirstName   string `json:"firstName"`
	PlayerID    string `json:"playerId"`
	Nationality string `json:"nationality"`
	DateOfBirth string `json:"dateOfBirth"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ContactFax  string `json:"contactFax"`
}

// LoadProfile reads a player.json file of the shape
// {"player_data": {...}} and validates it.
func LoadProfile(path string) (PlayerProfile, error) {
	var p PlayerProfile

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("unable to read player profile %s: %w", path, err)
	}

	var wrapper struct {
		PlayerData PlayerProfile `json:"player_data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return p, fmt.Errorf("unable to parse player profile %s: %w", path, err)
	}
	p = wrapper.PlayerData

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid player profile %s: %w", path, err)
	}

	return p, nil
}

// Validate reports the profile fields the form cannot be submitted
// without. Runs before any race starts so a bad profile fails fast.
func (p PlayerProfile) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"lastName", p.LastName},
		{"firstName", p.FirstName},
		{"email", p.Email},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required player fields: %s",
			strings.Join(missing, ", "))
	}
	return nil
}

// DisplayName returns "First Last" for logs and attempt ids.
func (p PlayerProfile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// FormValues maps the profile onto the registration form's field names.
// "ddlFedration" is the endpoint's own spelling.
func (p PlayerProfile) FormValues() url.Values {
	return url.Values{
		"ddlFedration":   {p.Federation},
		"txtLName":       {p.LastName},
		"txtFName":       {p.FirstName},
		"txtRankID":      {p.PlayerID},
		"ddlNationality": {p.Nationality},
		"txtDOB":         {p.DateOfBirth},
		"ddlCountry":     {p.Country},
		"txtCity":        {p.City},
		"txtAddress":     {p.Address},
		"txtPhone":       {p.Phone},
		"txtEmail":       {p.Email},
		"txtFax":         {p.ContactFax},
	}
}
