/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

import (
	"time"

	"github.com/araddon/dateparse"
)

// ParseDateOrZero returns a parsed time or zero if input is empty or "null".
// The UMB calendar vends dates in several inconsistent formats
// ("02-May-2025", "2025-05-02", ...); dateparse handles all of them.
func ParseDateOrZero(s string) (time.Time, error) {
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	return dateparse.ParseAny(s)
}

// ParseDateInZone is ParseDateOrZero but anchors zone-less inputs in loc
// rather than UTC. Registration open instants are local to the endpoint's
// zone, so catalog dates must not silently become UTC midnights.
func ParseDateInZone(s string, loc *time.Location) (time.Time, error) {
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	return dateparse.ParseIn(s, loc)
}
