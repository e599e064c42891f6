package dat

import "testing"

func TestResizePlanShift(t *testing.T) {
	grow := resizePlan{edit: 0x40, n: 0x20}
	shrink := resizePlan{edit: 0x40, n: -0x20}

	tests := []struct {
		plan resizePlan
		in   int
		want int
		ok   bool
	}{
		{grow, 0x3C, 0x3C, true},
		{grow, 0x40, 0x60, true},
		{grow, 0x100, 0x120, true},
		{shrink, 0x3C, 0x3C, true},
		{shrink, 0x40, 0x40, false},
		{shrink, 0x5C, 0x5C, false},
		{shrink, 0x60, 0x40, true},
		{shrink, 0x100, 0xE0, true},
	}
	for _, tc := range tests {
		got, ok := tc.plan.shift(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("shift(%#x) with n=%d = (%#x, %v), want (%#x, %v)", tc.in, tc.plan.n, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAlignDelta(t *testing.T) {
	c := &Container{alignment: DefaultAlignment, log: defaultOptions().log}

	tests := []struct {
		in, want int
	}{
		{0, 0},
		{1, 0x20},
		{0x20, 0x20},
		{0x21, 0x40},
		{-1, 0},
		{-0x20, -0x20},
		{-0x3F, -0x20},
	}
	for _, tc := range tests {
		if got := c.alignDelta(tc.in); got != tc.want {
			t.Errorf("alignDelta(%#x) = %#x, want %#x", tc.in, got, tc.want)
		}
	}

	c.alignment = 1
	if got := c.alignDelta(-7); got != -7 {
		t.Errorf("alignDelta with unit 1 = %d, want -7", got)
	}
}
