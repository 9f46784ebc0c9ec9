// Package codegen produces the short, time-ordered, collision-resistant
// codes handed to users (coupon codes, invite codes). Codes are xid-based:
// lexicographic order follows creation time and the charset stays
// copy-paste friendly.
package codegen

import (
	"strings"

	"github.com/rs/xid"
)

// CouponCode returns a coupon code such as "CPN-CNB0S5QG4HJ6DP30A2TG".
func CouponCode() string {
	return "CPN-" + strings.ToUpper(xid.New().String())
}

// InviteCode returns a shareable referral code. Shorter than a coupon code;
// the trailing random bytes of the xid keep it collision-resistant enough
// for the unique index to be a formality.
func InviteCode() string {
	id := strings.ToUpper(xid.New().String())
	return id[len(id)-8:]
}
