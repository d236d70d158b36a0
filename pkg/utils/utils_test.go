package utils

import (
	"math"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm^2: got %f", sum)
	}

	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		l, err := NewLogger(debug)
		if err != nil {
			t.Fatalf("debug=%v: %v", debug, err)
		}
		if l == nil {
			t.Fatalf("debug=%v: nil logger", debug)
		}
	}
}
