package models

const (
	DefaultBaseShippingFee       = 50.0
	DefaultFreeShippingThreshold = 1000.0
)

type ShippingConfig struct {
	BaseShippingFee       float64 `json:"baseShippingFee"`
	FreeShippingThreshold float64 `json:"freeShippingThreshold"`
	IsActive              bool    `json:"isActive"`
}

// DefaultShippingConfig est utilisée tant qu'aucune configuration active n'existe.
func DefaultShippingConfig() ShippingConfig {
	return ShippingConfig{
		BaseShippingFee:       DefaultBaseShippingFee,
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		IsActive:              true,
	}
}

type ShippingQuote struct {
	ShippingFee           float64 `json:"shippingFee"`
	IsFreeShipping        bool    `json:"isFreeShipping"`
	FreeShippingThreshold float64 `json:"freeShippingThreshold"`
	BaseShippingFee       float64 `json:"baseShippingFee"`
}
