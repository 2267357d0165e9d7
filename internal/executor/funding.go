package executor

import "time"

// fundingInterval is the perpetual funding cadence, settled at 00:00, 08:00
// and 16:00 UTC.
const fundingInterval = 8 * time.Hour

// nextFundingTime returns the first funding boundary strictly after t.
func nextFundingTime(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for b := day; ; b = b.Add(fundingInterval) {
		if b.After(t) {
			return b
		}
	}
}
