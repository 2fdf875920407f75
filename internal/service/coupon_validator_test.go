package service

import (
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/models"
)

func TestCouponAdjustedPrice(t *testing.T) {
	validator := NewCouponValidator(nil, nil)
	cases := []struct {
		name     string
		coupon   *models.CouponCode
		total    string
		expected string
	}{
		{"no coupon", nil, "10.00", "10.00"},
		{"fixed", &models.CouponCode{Type: constants.CouponTypeFixed, Value: models.MustMoney("3")}, "10.00", "7.00"},
		{"fixed floors at one fen", &models.CouponCode{Type: constants.CouponTypeFixed, Value: models.MustMoney("50")}, "10.00", "0.01"},
		{"percent", &models.CouponCode{Type: constants.CouponTypePercent, Value: models.MustMoney("15")}, "80.00", "68.00"},
		{"percent rounds to fen", &models.CouponCode{Type: constants.CouponTypePercent, Value: models.MustMoney("33")}, "9.99", "6.69"},
	}
	for _, tc := range cases {
		got := validator.AdjustedPrice(tc.coupon, models.MustMoney(tc.total))
		if got.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got.String())
		}
	}
}

func TestCouponCheckAvailableRules(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	validator := NewCouponValidator(nil, nil)
	validator.now = func() time.Time { return now }
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	subtotal := models.MustMoney("20")

	cases := []struct {
		name   string
		coupon models.CouponCode
		target error
	}{
		{"disabled", models.CouponCode{Enabled: false, Total: 1}, ErrCouponDisabled},
		{"sold out", models.CouponCode{Enabled: true, Total: 3, Used: 3}, ErrCouponSoldOut},
		{"not started", models.CouponCode{Enabled: true, Total: 3, NotBefore: &future}, ErrCouponNotStarted},
		{"expired", models.CouponCode{Enabled: true, Total: 3, NotAfter: &past}, ErrCouponExpired},
		{"below minimum", models.CouponCode{Enabled: true, Total: 3, MinAmount: models.MustMoney("50")}, ErrCouponMinAmount},
	}
	for _, tc := range cases {
		coupon := tc.coupon
		err := validator.CheckAvailable(nil, &coupon, 1, &subtotal)
		requireErrorIs(t, err, tc.target)
		requireErrorIs(t, err, ErrCouponUnavailable)
	}
	requireErrorIs(t, validator.CheckAvailable(nil, nil, 1, nil), ErrCouponNotFound)

	found, err := validator.Find("  ")
	if err != nil || found != nil {
		t.Fatalf("blank code should mean no coupon: %v", err)
	}
}
