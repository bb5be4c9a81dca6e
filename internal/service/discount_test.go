package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateDiscount(t *testing.T) {
	e := NewDiscountEvaluator(map[string]Discount{
		"DISCOUNT100": {PercentOff: 100, Description: "100% Off Everything"},
		"HALF":        {PercentOff: 50, Description: "Half price"},
	})

	tests := []struct {
		name       string
		code       string
		subtotal   int64
		wantValid  bool
		wantAmount int64
	}{
		{"full discount", "DISCOUNT100", 999, true, 999},
		{"half discount rounds down", "HALF", 999, true, 499},
		{"zero subtotal", "DISCOUNT100", 0, true, 0},
		{"negative subtotal clamps to zero", "HALF", -500, true, 0},
		{"unknown code", "NOPE", 999, false, 0},
		{"lookup is case sensitive", "discount100", 999, false, 0},
		{"empty code", "", 999, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.code, tt.subtotal)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantAmount, result.Amount)
		})
	}
}

func TestEvaluateNeverExceedsSubtotal(t *testing.T) {
	e := NewDiscountEvaluator(nil)

	for _, subtotal := range []int64{0, 1, 99, 100, 999, 123456789} {
		result := e.Evaluate("DISCOUNT100", subtotal)
		assert.True(t, result.Valid)
		assert.LessOrEqual(t, result.Amount, subtotal)
		assert.GreaterOrEqual(t, subtotal-result.Amount, int64(0))
	}
}
