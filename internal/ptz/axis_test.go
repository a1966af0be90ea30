package ptz

import (
	"math"
	"testing"
)

func TestNormalizeRange(t *testing.T) {
	for raw := math.MinInt16; raw <= math.MaxInt16; raw++ {
		v := Normalize(int16(raw))
		if v < -1 || v > 1 {
			t.Fatalf("Normalize(%d) = %v, outside [-1, 1]", raw, v)
		}

		abs := raw
		if abs < 0 {
			abs = -abs
		}
		switch {
		case abs < int(DefaultDeadZone) && v != 0:
			t.Fatalf("Normalize(%d) = %v, want 0 inside dead zone", raw, v)
		case abs > int(DefaultDeadZone) && v == 0:
			t.Fatalf("Normalize(%d) = 0, want nonzero outside dead zone", raw)
		}
	}
}

func TestNormalizeEndpoints(t *testing.T) {
	tests := []struct {
		raw  int16
		want float32
	}{
		{32767, 1},
		{-32768, -1},
		{-32767, -1},
		{0, 0},
		{1999, 0},
		{-1999, 0},
		{2000, 0},
		{-2000, 0},
	}

	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeSignAndMonotonic(t *testing.T) {
	prev := float32(-2)
	for raw := -32768; raw <= 32767; raw += 97 {
		v := Normalize(int16(raw))
		if v < prev {
			t.Fatalf("Normalize not monotonic at %d: %v < %v", raw, v, prev)
		}
		prev = v
		if raw > 0 && v < 0 || raw < 0 && v > 0 {
			t.Fatalf("Normalize(%d) = %v has the wrong sign", raw, v)
		}
	}
}

func TestNormalizeWithCustomDeadZone(t *testing.T) {
	if got := NormalizeWith(4000, 5000, MaxRaw); got != 0 {
		t.Errorf("NormalizeWith(4000, 5000) = %v, want 0", got)
	}
	if got := NormalizeWith(100, 0, MaxRaw); got <= 0 {
		t.Errorf("NormalizeWith(100, 0) = %v, want positive", got)
	}
	if got := NormalizeWith(100, -5, MaxRaw); got <= 0 {
		t.Errorf("negative dead zone should behave like zero, got %v", got)
	}

	half := NormalizeWith(17383, 2000, MaxRaw)
	if math.Abs(float64(half)-0.5) > 0.001 {
		t.Errorf("NormalizeWith(17383) = %v, want ~0.5", half)
	}
}
