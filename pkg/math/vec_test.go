package math

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 4, 12}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}

	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Errorf("zero vector should normalize to zero, got %v", z)
	}
}

func TestVec3IsFinite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Error("expected finite vector")
	}
	if (Vec3{1, float32(math.NaN()), 3}).IsFinite() {
		t.Error("NaN component should not be finite")
	}
	if (Vec3{float32(math.Inf(1)), 0, 0}).IsFinite() {
		t.Error("Inf component should not be finite")
	}
}

func TestTriangleArea(t *testing.T) {
	got := TriangleArea(Vec3{0, 0, 0}, Vec3{4, 0, 0}, Vec3{0, 0, 3})
	if got != 6 {
		t.Errorf("TriangleArea() = %v, want 6", got)
	}
}

func TestAABB(t *testing.T) {
	box := EmptyAABB().Extend(Vec3{1, 2, 3}).Extend(Vec3{-1, 0, 5})
	if box.Min != (Vec3{-1, 0, 3}) || box.Max != (Vec3{1, 2, 5}) {
		t.Errorf("unexpected box %v", box)
	}

	if d := box.Distance(Vec3{0, 1, 4}); d != 0 {
		t.Errorf("inside distance = %v, want 0", d)
	}
	if d := box.Distance(Vec3{4, 1, 4}); d != 3 {
		t.Errorf("outside distance = %v, want 3", d)
	}

	other := AABB{Min: Vec3{0.5, 0, 0}, Max: Vec3{2, 2, 2}}
	if !box.Overlaps(other) {
		t.Error("boxes should overlap")
	}
	if box.Overlaps(AABB{Min: Vec3{5, 5, 5}, Max: Vec3{6, 6, 6}}) {
		t.Error("boxes should not overlap")
	}
	if u := box.Union(other); u.Min != (Vec3{-1, 0, 0}) || u.Max != (Vec3{2, 2, 5}) {
		t.Errorf("unexpected union %v", u)
	}
}
