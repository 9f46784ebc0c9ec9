package codegen

import (
	"strings"
	"testing"
)

func TestCouponCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := CouponCode()
		if !strings.HasPrefix(code, "CPN-") {
			t.Fatalf("missing prefix: %q", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("not uppercase: %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code: %q", code)
		}
		seen[code] = true
	}
}

func TestInviteCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := InviteCode()
		if len(code) != 8 {
			t.Fatalf("length %d: %q", len(code), code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("not uppercase: %q", code)
		}
	}
}
