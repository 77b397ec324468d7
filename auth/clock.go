package auth

import "time"

// RenewalThreshold is how much validity may remain before a token is renewed.
const RenewalThreshold = 300 * time.Second

// RemainingSeconds returns how long rec stays valid after now. It is negative once expired.
func RemainingSeconds(rec TokenRecord, now time.Time) int64 {
	return rec.ExpiresAt - now.Unix()
}

// RenewalDue reports whether less than threshold of validity remains.
func RenewalDue(rec TokenRecord, now time.Time, threshold time.Duration) bool {
	return RemainingSeconds(rec, now) < int64(threshold/time.Second)
}
