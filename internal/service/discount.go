package service

// Discount is a fixed discount table entry
type Discount struct {
	PercentOff  int64
	Description string
}

// DiscountResult is the outcome of evaluating a code against a subtotal.
// An unknown code is a normal result with Valid false, not an error.
type DiscountResult struct {
	Valid       bool
	Code        string
	Amount      int64
	PercentOff  int64
	Description string
}

// DefaultDiscounts is the fixed table of valid codes. Lookup is
// case-sensitive.
var DefaultDiscounts = map[string]Discount{
	"DISCOUNT100": {PercentOff: 100, Description: "100% Off Everything"},
}

// DiscountEvaluator maps discount codes to amounts
type DiscountEvaluator struct {
	codes map[string]Discount
}

// NewDiscountEvaluator creates an evaluator over the given code table
func NewDiscountEvaluator(codes map[string]Discount) *DiscountEvaluator {
	if codes == nil {
		codes = DefaultDiscounts
	}
	return &DiscountEvaluator{codes: codes}
}

// Evaluate computes the discount for a code and subtotal in minor currency
// units. The amount is clamped to the subtotal so an order total can never
// go negative.
func (e *DiscountEvaluator) Evaluate(code string, subtotal int64) DiscountResult {
	if subtotal < 0 {
		subtotal = 0
	}

	discount, ok := e.codes[code]
	if !ok {
		return DiscountResult{Valid: false}
	}

	amount := subtotal * discount.PercentOff / 100
	if amount > subtotal {
		amount = subtotal
	}

	return DiscountResult{
		Valid:       true,
		Code:        code,
		Amount:      amount,
		PercentOff:  discount.PercentOff,
		Description: discount.Description,
	}
}
