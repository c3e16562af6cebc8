package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	Name  string `json:"name" validate:"required,notblank"`
	Phone string `json:"phoneNumber" validate:"required,notblank"`
	City  string `json:"city"`
}

type request struct {
	ShippingAddress address `json:"shippingAddress"`
	Quantity        int     `json:"quantity" validate:"min=1"`
}

func TestStructReportsFieldPaths(t *testing.T) {
	err := Struct(request{ShippingAddress: address{Name: "   "}, Quantity: 0})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["shippingAddress.name"])
	assert.Equal(t, "is required", verr.Fields["shippingAddress.phoneNumber"])
	assert.Equal(t, "must be at least 1", verr.Fields["quantity"])
	assert.NotContains(t, verr.Fields, "shippingAddress.city")
}

func TestStructAcceptsValidInput(t *testing.T) {
	err := Struct(request{ShippingAddress: address{Name: "Asha", Phone: "9876543210"}, Quantity: 2})
	assert.NoError(t, err)
}

func TestErrorMessageIsStable(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "is required", "a": "is invalid"}}
	assert.Equal(t, "validation: a: is invalid, b: is required", err.Error())
}
