package pricing

import "testing"

func TestMinorUnitsRoundTrip(t *testing.T) {
	for c := Money(0); c <= 250_000; c++ {
		if got := ToMinorUnits(FromMinorUnits(c)); got != c {
			t.Fatalf("round trip broke at %d: got %d", c, got)
		}
	}
}

func TestToMinorUnitsRounding(t *testing.T) {
	cases := []struct {
		amount float64
		want   Money
	}{
		{0, 0},
		{0.005, 1},
		{0.014, 1},
		{0.015, 2},
		{29.99, 2999},
		{150.00, 15000},
	}
	for _, tc := range cases {
		if got := ToMinorUnits(tc.amount); got != tc.want {
			t.Fatalf("ToMinorUnits(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestClampNonNegative(t *testing.T) {
	if got := ClampNonNegative(-500); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if got := ClampNonNegative(42); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestComputePercentDiscount(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 10_000}}
	s := Compute(items, Percent(10_000, 10), 0)
	if s.Discount != 1000 {
		t.Fatalf("expected 1000 discount, got %d", s.Discount)
	}
	if s.PriceAfterDiscount != 9000 {
		t.Fatalf("expected 9000 after discount, got %d", s.PriceAfterDiscount)
	}
}

func TestComputeFixedDiscountClamped(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 2500}}
	s := Compute(items, 3000, 0)
	if s.Discount != 2500 {
		t.Fatalf("expected discount capped at subtotal, got %d", s.Discount)
	}
	if s.PriceAfterDiscount != 0 || s.Total != 0 {
		t.Fatalf("expected zero totals, got %+v", s)
	}
}

func TestComputeIdempotent(t *testing.T) {
	items := []Item{{Qty: 2, UnitPrice: 3000}, {Qty: 1, UnitPrice: 1550}}
	first := Compute(items, 755, 2900)
	second := Compute(items, 755, 2900)
	if first != second {
		t.Fatalf("recompute drifted: %+v vs %+v", first, second)
	}
	if first.Total != 9695 {
		t.Fatalf("expected total 9695, got %d", first.Total)
	}
}

func TestComputeSkipsNonPositiveQty(t *testing.T) {
	items := []Item{{Qty: 0, UnitPrice: 9999}, {Qty: -2, UnitPrice: 100}, {Qty: 3, UnitPrice: 100}}
	s := Compute(items, 0, 0)
	if s.Subtotal != 300 {
		t.Fatalf("expected subtotal 300, got %d", s.Subtotal)
	}
}
