package pricing

import "math"

// Money represents a monetary value stored in minor units (cents).
type Money = int64

// ToMinorUnits converts a decimal amount into integer cents using
// round-half-away-from-zero, the rounding payment processors apply.
func ToMinorUnits(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// FromMinorUnits converts integer cents back into a decimal amount.
func FromMinorUnits(cents Money) float64 {
	return float64(cents) / 100
}

// ClampNonNegative floors a value at zero. Applied after every subtraction so
// a discount can never drive a total negative.
func ClampNonNegative(n Money) Money {
	if n < 0 {
		return 0
	}
	return n
}

// Percent applies a percentage to a cent amount, rounding half away from zero.
func Percent(cents Money, pct float64) Money {
	return Money(math.Round(float64(cents) * pct / 100))
}

// Item describes a line item used for totals calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates the derived pricing components of a cart.
type Summary struct {
	Subtotal           Money
	Discount           Money
	PriceAfterDiscount Money
	DeliveryFee        Money
	Total              Money
}

// Compute derives cart totals from primary state. All arithmetic stays in
// cents; conversion back to decimal happens only at the display boundary.
func Compute(items []Item, discount Money, deliveryFee Money) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	if discount > subtotal {
		discount = subtotal
	}
	discount = ClampNonNegative(discount)
	afterDiscount := ClampNonNegative(subtotal - discount)
	if deliveryFee < 0 {
		deliveryFee = 0
	}
	return Summary{
		Subtotal:           subtotal,
		Discount:           discount,
		PriceAfterDiscount: afterDiscount,
		DeliveryFee:        deliveryFee,
		Total:              ClampNonNegative(afterDiscount + deliveryFee),
	}
}
