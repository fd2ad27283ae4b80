package checkin

import (
	"strings"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

type matchRule func(candidate, query string) bool

// matchRules are tried in order; the first rule with any hit wins.
var matchRules = []matchRule{
	func(c, q string) bool { return c == q },
	strings.EqualFold,
	func(c, q string) bool { return strings.Contains(strings.ToLower(c), strings.ToLower(q)) },
}

// Resolve finds the reservation named by query in the snapshot.  A miss
// yields *NotFoundError; a hit whose status is not eligible yields
// *InvalidStatusError and the reservation is not returned.
func Resolve(query string, snapshot []model.Reservation) (model.Reservation, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return model.Reservation{}, ErrEmptyQuery
	}
	for _, match := range matchRules {
		for _, r := range snapshot {
			if !match(strings.TrimSpace(r.ReservationNo), q) {
				continue
			}
			if !r.IsCheckInEligible() {
				return model.Reservation{}, &InvalidStatusError{ReservationNo: r.ReservationNo, Status: r.Status}
			}
			return r, nil
		}
	}
	return model.Reservation{}, &NotFoundError{Query: q}
}
