package service

import (
	"errors"
	"time"
)

// ErrRateNotConfigured is returned by the fee projection when the
// vehicle's category has no hourly rate row.  Surfacing it keeps a
// missing rate distinguishable from a legitimately free session.
var ErrRateNotConfigured = errors.New("no hourly rate configured for vehicle category")

// FeeCents computes the parking fee for a stay.  Billing is per started
// hour: a 61 minute stay bills two hours.  A non-positive duration
// clamps to zero hours instead of failing, so bad input can never
// produce a negative fee.
func FeeCents(entry, exit time.Time, rateCentsHour uint32) uint32 {
	d := exit.Sub(entry)
	if d <= 0 {
		return 0
	}
	hours := uint32(d / time.Hour)
	if d%time.Hour > 0 {
		hours++
	}
	return hours * rateCentsHour
}
