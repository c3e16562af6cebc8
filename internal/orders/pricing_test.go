package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen_back_end/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestComputeTotalsCappedPercentageWithShipping(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: "a", Quantity: 1, Price: 600},
		{ProductID: "b", Quantity: 2, Price: 200},
	}
	promo := &models.PromoCode{
		Code: "DIWALI10", DiscountType: models.DiscountPercentage, DiscountValue: 10,
		MaxDiscountAmount: ptr(80.0), IsActive: true,
	}
	cfg := models.ShippingConfig{BaseShippingFee: 50, FreeShippingThreshold: 999, IsActive: true}

	totals, err := ComputeTotals(items, promo, cfg, testNow)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "80.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "50.00", totals.ShippingFee.StringFixed(2))
	assert.Equal(t, "970.00", totals.Total.StringFixed(2))
}

func TestComputeTotalsFreeShippingAtThreshold(t *testing.T) {
	items := []models.OrderItem{{ProductID: "a", Quantity: 1, Price: 1000}}
	cfg := models.DefaultShippingConfig()

	totals, err := ComputeTotals(items, nil, cfg, testNow)
	require.NoError(t, err)
	assert.True(t, totals.ShippingFee.IsZero())
	assert.Equal(t, "1000.00", totals.Total.StringFixed(2))
}

func TestComputeTotalsRoundsToPaise(t *testing.T) {
	items := []models.OrderItem{{ProductID: "a", Quantity: 3, Price: 33.335}}
	promo := &models.PromoCode{Code: "P", DiscountType: models.DiscountPercentage, DiscountValue: 12.5, IsActive: true}
	cfg := models.ShippingConfig{BaseShippingFee: 49.99, FreeShippingThreshold: 1000}

	totals, err := ComputeTotals(items, promo, cfg, testNow)
	require.NoError(t, err)
	// 33.34 * 3 = 100.02 ; 12.5% = 12.5025 → 12.50
	assert.Equal(t, "100.02", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "12.50", totals.Discount.StringFixed(2))
	assert.Equal(t, "137.51", totals.Total.StringFixed(2))
}

func TestPromoDiscountFixedCappedAtAmount(t *testing.T) {
	promo := &models.PromoCode{Code: "FLAT500", DiscountType: models.DiscountFixed, DiscountValue: 500, IsActive: true}

	d, err := PromoDiscount(promo, decimal.NewFromInt(300), testNow)
	require.NoError(t, err)
	assert.Equal(t, "300.00", d.StringFixed(2))
}

func TestPromoDiscountRejections(t *testing.T) {
	base := models.PromoCode{Code: "X", DiscountType: models.DiscountPercentage, DiscountValue: 10, IsActive: true}

	cases := map[string]func(p *models.PromoCode){
		"inactive":      func(p *models.PromoCode) { p.IsActive = false },
		"not yet valid": func(p *models.PromoCode) { p.ValidFrom = testNow.Add(time.Hour) },
		"expired":       func(p *models.PromoCode) { p.ValidUntil = testNow.Add(-time.Hour) },
		"limit reached": func(p *models.PromoCode) { p.UsageLimit = ptr(5); p.UsedCount = 5 },
		"minimum":       func(p *models.PromoCode) { p.MinOrderAmount = 2000 },
		"unknown type":  func(p *models.PromoCode) { p.DiscountType = "free_shipping" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, err := PromoDiscount(&p, decimal.NewFromInt(1000), testNow)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, "promoCode")
		})
	}
}

func TestShippingQuote(t *testing.T) {
	cfg := models.ShippingConfig{BaseShippingFee: 50, FreeShippingThreshold: 1000}

	q := shippingQuote(cfg, decimal.NewFromInt(999))
	assert.Equal(t, 50.0, q.ShippingFee)
	assert.False(t, q.IsFreeShipping)

	q = shippingQuote(cfg, decimal.NewFromInt(1000))
	assert.Equal(t, 0.0, q.ShippingFee)
	assert.True(t, q.IsFreeShipping)
}
