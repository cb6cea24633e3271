package pose

import (
	"math"
	"testing"
)

func almostEqualVec3(a, b Vec3, eps float32) bool {
	return absf(a.X-b.X) < eps && absf(a.Y-b.Y) < eps && absf(a.Z-b.Z) < eps
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSlerpAtEndpoints(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 1, 0}
	if got := Slerp(a, b, 0); !almostEqualVec3(got, a, 1e-4) {
		t.Fatalf("u=0: want %v, got %v", a, got)
	}
	if got := Slerp(a, b, 1); !almostEqualVec3(got, b, 1e-4) {
		t.Fatalf("u=1: want %v, got %v", b, got)
	}
}

func TestSlerpStaysUnitLength(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 0, 1}
	for _, u := range []float32{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		got := Slerp(a, b, u)
		m := magnitude(got)
		if absf(m-1) > 1e-3 {
			t.Fatalf("u=%v: want unit length, got magnitude %v (%v)", u, m, got)
		}
	}
}

func TestSlerpNearParallelLinearBlend(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := SafeNormalize(Vec3{1, 0.001, 0}, a)
	got := Slerp(a, b, 0.5)
	if absf(magnitude(got)-1) > 1e-3 {
		t.Fatalf("want unit length for near-parallel blend, got %v", got)
	}
}

func TestSlerpAntiparallel(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{-1, 0, 0}
	mid := Slerp(a, b, 0.5)
	if absf(magnitude(mid)-1) > 1e-3 {
		t.Fatalf("want unit length, got %v", mid)
	}
	// Halfway through a pi rotation should be perpendicular to both endpoints.
	if absf(dot(mid, a)) > 0.2 {
		t.Fatalf("want midpoint roughly perpendicular to a, got dot=%v", dot(mid, a))
	}
}

func TestSafeNormalizeFallback(t *testing.T) {
	fallback := Vec3{0, 1, 0}
	got := SafeNormalize(Vec3{0, 0, 0}, fallback)
	if got != fallback {
		t.Fatalf("want fallback %v, got %v", fallback, got)
	}
}

func TestSafeNormalizeFallsBackBelowSpecThreshold(t *testing.T) {
	// spec.md's degeneracy threshold is 1e-6; a magnitude of 5e-7 sits
	// between that and the tighter 1e-9 this used to use, so it must still
	// fall back rather than amplify floating-point noise.
	fallback := Vec3{0, 1, 0}
	got := SafeNormalize(Vec3{5e-7, 0, 0}, fallback)
	if got != fallback {
		t.Fatalf("want fallback %v for magnitude 5e-7, got %v", fallback, got)
	}
}

func TestSafeNormalizeUnitMagnitude(t *testing.T) {
	got := SafeNormalize(Vec3{3, 4, 0}, Vec3{0, 1, 0})
	m := math.Sqrt(float64(got.X)*float64(got.X) + float64(got.Y)*float64(got.Y) + float64(got.Z)*float64(got.Z))
	if math.Abs(m-1) > 1e-4 {
		t.Fatalf("want unit magnitude, got %v (%v)", m, got)
	}
}
