package randsrc

import "testing"

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		x, y := a.NormFloat64(), b.NormFloat64()
		if x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
	}
}

func TestDeriveIsIndependentOfParentState(t *testing.T) {
	a := New(7)
	a.Float64()
	a.Float64()
	d := a.Derive(1)
	if d.Seed() != 8 {
		t.Fatalf("Derive(1).Seed() = %d, want 8", d.Seed())
	}
	if d.Float64() != New(8).Float64() {
		t.Error("derived source should match a fresh source with the same seed")
	}
}
