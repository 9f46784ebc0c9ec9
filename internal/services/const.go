package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Lock-timeout errors; callers treat these as retryable.
var ErrCouponTypeLock = errors.New("coupon type locked")
var ErrCouponLock = errors.New("coupon locked")
var ErrStampLock = errors.New("stamp wallet locked")
var ErrCampaignLock = errors.New("campaign locked")

// Business-rule failures. Messages are the stable machine-readable codes
// surfaced to API callers; never retried automatically.
var (
	ErrInvalidInviteCode   = errors.New("invalid_invite_code")
	ErrBlockedInviteCode   = errors.New("blocked_invite_code")
	ErrSelfReferral        = errors.New("self_referral")
	ErrAlreadyAccepted     = errors.New("referral_already_accepted")
	ErrReferralLimit       = errors.New("referral_limit_reached")
	ErrCouponNotFound      = errors.New("coupon_not_found")
	ErrAlreadyUsed         = errors.New("coupon_already_used")
	ErrCouponExpired       = errors.New("coupon_expired")
	ErrInvalidMerchantCode = errors.New("invalid_merchant_code")
	ErrUnsupportedPinAlgo  = errors.New("unsupported_pin_algo")
	ErrSoldOut             = errors.New("sold_out")
	ErrStampDailyLimit     = errors.New("stamp_daily_limit_reached")
	ErrCouponLimit         = errors.New("coupon_limit_reached")
	ErrNoRestaurants       = errors.New("no_restaurants_available")
	ErrCapacityExhausted   = errors.New("capacity_exhausted")
	ErrCampaignClosed      = errors.New("campaign_closed")
	ErrCampaignMisconfig   = errors.New("campaign_misconfigured")
)

const (
	CACHE_TTL_5_SECONDS = 5 * time.Second
	CACHE_TTL_1_MIN     = 1 * time.Minute
	CACHE_TTL_5_MINS    = 5 * time.Minute
	CACHE_TTL_15_MINS   = 15 * time.Minute
	CACHE_TTL_1_HOUR    = 1 * time.Hour

	IDEMPOTENCY_TTL = 300 * time.Second
)

func LockKeyCouponType(couponType string) string {
	return fmt.Sprintf("lock:coupon-type:%s", strings.ToLower(couponType))
}

func LockKeyCoupon(code string) string {
	return fmt.Sprintf("lock:coupon:%s", strings.ToLower(code))
}

func LockKeyStampWallet(userID int64, restaurantID int64) string {
	return fmt.Sprintf("lock:stamp:%d:%d", userID, restaurantID)
}

func LockKeyFlashCampaign(campaignCode string) string {
	return fmt.Sprintf("lock:flash:%s", strings.ToLower(campaignCode))
}

// db
func DBKeyRestaurantIDs() string {
	return "restaurant:ids"
}

func DBKeyRestaurant(restaurantID int64) string {
	return fmt.Sprintf("restaurant:%d", restaurantID)
}

func DBKeyCouponType(code string) string {
	return fmt.Sprintf("coupon_type:%s", strings.ToLower(code))
}

func DBKeyCampaign(code string) string {
	return fmt.Sprintf("campaign:%s", strings.ToLower(code))
}

func DBKeyUserCoupons(userID int64) string {
	return fmt.Sprintf("user_coupons:%d", userID)
}

func DBKeyInviteCode(userID int64) string {
	return fmt.Sprintf("invite_code:%d", userID)
}

func DBKeyStampIdem(idemKey string) string {
	return fmt.Sprintf("stamp:idem:%s", idemKey)
}

func LimitKeyMerchantPin(restaurantID int64) string {
	return fmt.Sprintf("limit:merchant-pin:%d", restaurantID)
}

// dayString keys per-day counters and issue keys.
func dayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// startOfDay bounds the daily stamp-earn window.
func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
