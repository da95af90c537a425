package prob

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestZeroOne(t *testing.T) {
	if !Zero().IsZero() {
		t.Fatalf("Zero() is not zero")
	}
	if Zero().Val() != 0 {
		t.Fatalf("Zero().Val() = %v, want 0", Zero().Val())
	}
	if !almostEqual(One().Val(), 1) {
		t.Fatalf("One().Val() = %v, want 1", One().Val())
	}
}

func TestNew(t *testing.T) {
	cases := []float64{0, 0.2, 0.5, 0.99, 1.0}
	for _, v := range cases {
		p := New(v)
		if !almostEqual(p.Val(), v) {
			t.Errorf("New(%v).Val() = %v", v, p.Val())
		}
	}
}

func TestInvert(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 1},
		{1, 0},
		{0.2, 0.8},
		{0.75, 0.25},
	}
	for _, c := range cases {
		got := New(c.in).Invert().Val()
		if !almostEqual(got, c.want) {
			t.Errorf("New(%v).Invert().Val() = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestInvertClampsAboveOne(t *testing.T) {
	// A value that floating-point drift pushed slightly above 1 must invert
	// to exactly Zero, never a negative probability.
	p := FromLog(1e-12)
	inv := p.Invert()
	if !inv.IsZero() {
		t.Fatalf("Invert() of a >=1 value did not clamp to Zero, got %v", inv.Val())
	}
}

func TestAddDisjoint(t *testing.T) {
	a := New(0.3)
	b := New(0.4)
	got := a.Add(b).Val()
	if !almostEqual(got, 0.7) {
		t.Errorf("0.3 + 0.4 = %v, want 0.7", got)
	}
}

func TestAddWithZero(t *testing.T) {
	a := New(0.5)
	if got := a.Add(Zero()).Val(); !almostEqual(got, 0.5) {
		t.Errorf("a + Zero = %v, want 0.5", got)
	}
	if got := Zero().Add(a).Val(); !almostEqual(got, 0.5) {
		t.Errorf("Zero + a = %v, want 0.5", got)
	}
}

func TestMul(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{0.2, 0.2, 0.04},
		{1, 0.5, 0.5},
		{0, 0.5, 0},
	}
	for _, c := range cases {
		got := New(c.a).Mul(New(c.b)).Val()
		if !almostEqual(got, c.want) {
			t.Errorf("%v * %v = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

// TestLinkFailureStateProb mirrors test_failures.py::test_link_failures: for
// independent links with p=0.2, the probability of a state vector is the
// product of per-link probabilities (up-links (1) contribute 1-p, down-links
// (0) contribute p, and -1 ("unknown"/unconstrained) contributes 1).
func TestLinkFailureStateProb(t *testing.T) {
	p := 0.2
	stateProb := func(state []int) float64 {
		acc := One()
		for _, s := range state {
			switch s {
			case -1:
				// unconstrained: contributes probability 1
			case 0:
				acc = acc.Mul(New(p))
			case 1:
				acc = acc.Mul(New(1 - p))
			}
		}
		return acc.Val()
	}

	if got := stateProb([]int{-1, -1, -1}); !almostEqual(got, 1.0) {
		t.Errorf("state [-1,-1,-1] prob = %v, want 1.0", got)
	}
	if got := stateProb([]int{1, 0, -1}); !almostEqual(got, 0.16) {
		t.Errorf("state [1,0,-1] prob = %v, want 0.16", got)
	}
	if got := stateProb([]int{-1, 0, 0}); !almostEqual(got, 0.04) {
		t.Errorf("state [-1,0,0] prob = %v, want 0.04", got)
	}
}

// Quantified invariants (spec.md §8): Invert is involutive on values that
// started in [0,1] and didn't hit the clamp, Add is commutative, Mul is
// associative, and adding two probabilities never yields a negative Val().
func TestInvertInvolution(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Float64Range(0, 1).Draw(rt, "v")
		p := New(v)
		twice := p.Invert().Invert()
		if !almostEqual(twice.Val(), p.Val()) {
			rt.Fatalf("Invert(Invert(%v)) = %v, want %v", v, twice.Val(), p.Val())
		}
	})
}

func TestAddCommutative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(0, 0.5).Draw(rt, "a")
		b := rapid.Float64Range(0, 0.5).Draw(rt, "b")
		x, y := New(a).Add(New(b)), New(b).Add(New(a))
		if !almostEqual(x.Val(), y.Val()) {
			rt.Fatalf("Add not commutative: %v vs %v", x.Val(), y.Val())
		}
	})
}

func TestMulAssociative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(0, 1).Draw(rt, "a")
		b := rapid.Float64Range(0, 1).Draw(rt, "b")
		c := rapid.Float64Range(0, 1).Draw(rt, "c")
		left := New(a).Mul(New(b)).Mul(New(c))
		right := New(a).Mul(New(b).Mul(New(c)))
		if !almostEqual(left.Val(), right.Val()) {
			rt.Fatalf("Mul not associative: %v vs %v", left.Val(), right.Val())
		}
	})
}

func TestAddNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(0, 1).Draw(rt, "a")
		b := rapid.Float64Range(0, 1).Draw(rt, "b")
		sum := New(a).Add(New(b))
		if sum.Val() < 0 {
			rt.Fatalf("Add produced negative probability: %v", sum.Val())
		}
	})
}
