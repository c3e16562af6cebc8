package models

import "time"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// PromoCode est lu depuis ScyllaDB (ks_orders.promo_codes, clé = code en majuscules).
type PromoCode struct {
	Code              string    `json:"code"`
	Description       string    `json:"description"`
	DiscountType      string    `json:"discountType"`
	DiscountValue     float64   `json:"discountValue"`
	MinOrderAmount    float64   `json:"minOrderAmount"`
	MaxDiscountAmount *float64  `json:"maxDiscountAmount,omitempty"`
	UsageLimit        *int      `json:"usageLimit,omitempty"`
	UsedCount         int       `json:"usedCount"`
	ValidFrom         time.Time `json:"validFrom"`
	ValidUntil        time.Time `json:"validUntil"`
	IsActive          bool      `json:"isActive"`
}

// LimitReached indique si le quota d'utilisations est atteint.
func (p *PromoCode) LimitReached() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}

type PromoQuote struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discountAmount"`
	DiscountType   string  `json:"discountType"`
	DiscountValue  float64 `json:"discountValue"`
}
