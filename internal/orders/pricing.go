package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lumen_back_end/internal/models"
	"lumen_back_end/internal/validation"
)

// Les montants sont en roupies, arrondis au paise.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Totals est le détail d'une commande au moment de sa création.
type Totals struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(moneyPlaces)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(moneyPlaces).Float64()
	return f
}

func Subtotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(money(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(moneyPlaces)
}

// PromoDiscount vérifie l'applicabilité du code et calcule la remise sur amount.
// Un code inapplicable produit une erreur de validation sur le champ promoCode.
func PromoDiscount(p *models.PromoCode, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	switch {
	case p == nil:
		return decimal.Zero, validation.Field("promoCode", "is invalid")
	case !p.IsActive:
		return decimal.Zero, validation.Field("promoCode", "is not active")
	case !p.ValidFrom.IsZero() && now.Before(p.ValidFrom):
		return decimal.Zero, validation.Field("promoCode", "is not yet valid")
	case !p.ValidUntil.IsZero() && now.After(p.ValidUntil):
		return decimal.Zero, validation.Field("promoCode", "has expired")
	case p.LimitReached():
		return decimal.Zero, validation.Field("promoCode", "usage limit reached")
	}

	minimum := money(p.MinOrderAmount)
	if amount.LessThan(minimum) {
		return decimal.Zero, validation.Field("promoCode", fmt.Sprintf("requires a minimum order amount of %s", minimum.StringFixed(moneyPlaces)))
	}

	var discount decimal.Decimal
	switch p.DiscountType {
	case models.DiscountPercentage:
		discount = amount.Mul(decimal.NewFromFloat(p.DiscountValue)).Div(hundred)
		if p.MaxDiscountAmount != nil {
			discount = decimal.Min(discount, money(*p.MaxDiscountAmount))
		}
	case models.DiscountFixed:
		discount = money(p.DiscountValue)
	default:
		return decimal.Zero, validation.Field("promoCode", "is invalid")
	}

	discount = decimal.Min(discount, amount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(moneyPlaces), nil
}

// ShippingFee est nul dès que amount atteint le seuil de livraison gratuite.
func ShippingFee(cfg models.ShippingConfig, amount decimal.Decimal) decimal.Decimal {
	if amount.GreaterThanOrEqual(money(cfg.FreeShippingThreshold)) {
		return decimal.Zero
	}
	return money(cfg.BaseShippingFee)
}

// ComputeTotals applique total = round(subtotal - remise) + frais de port.
func ComputeTotals(items []models.OrderItem, promo *models.PromoCode, cfg models.ShippingConfig, now time.Time) (Totals, error) {
	t := Totals{Subtotal: Subtotal(items), Discount: decimal.Zero}
	if promo != nil {
		d, err := PromoDiscount(promo, t.Subtotal, now)
		if err != nil {
			return Totals{}, err
		}
		t.Discount = d
	}
	afterDiscount := t.Subtotal.Sub(t.Discount).Round(moneyPlaces)
	t.ShippingFee = ShippingFee(cfg, afterDiscount)
	t.Total = afterDiscount.Add(t.ShippingFee)
	return t, nil
}

func shippingQuote(cfg models.ShippingConfig, amount decimal.Decimal) models.ShippingQuote {
	fee := ShippingFee(cfg, amount)
	return models.ShippingQuote{
		ShippingFee:           toFloat(fee),
		IsFreeShipping:        fee.IsZero(),
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		BaseShippingFee:       cfg.BaseShippingFee,
	}
}
