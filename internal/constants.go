/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

const (
	UserAgent = "umb-racebot/0.3.0 (+https://github.com/umbtools/umb-racebot)"

	// BaseURL is the UMB public site root; overridable per run for testing
	// against a staging mirror via UMB_BASE_URL.
	BaseURL = "https://files.umb-carom.org/public"

	SnapshotBucket = "umbtools-umb-racebot-prod-snapshots"
	WebCacheBucket = "umbtools-umb-racebot-prod-webcache"
)
