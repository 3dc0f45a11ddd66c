package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestCheckRange(t *testing.T) {
	if end, err := CheckRange(16, 3, 13); err != nil || end != 16 {
		t.Fatalf("CheckRange(16,3,13)=%d,%v want 16,nil", end, err)
	}
	if _, err := CheckRange(16, 4, 13); err == nil {
		t.Fatalf("expected bounds error")
	}
	if _, err := CheckRange(16, -1, 1); err == nil {
		t.Fatalf("expected negative offset error")
	}
	if _, err := CheckRange(16, 1, -1); err == nil {
		t.Fatalf("expected negative length error")
	}
	if _, err := CheckRange(math.MaxInt, math.MaxInt, 1); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestSlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if got, _ := Slice(data, 1, 2); cap(got) != 2 {
		t.Fatalf("Slice should cap the view at its length, got cap %d", cap(got))
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}

	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}
