package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadNumber(t *testing.T) {
	assert.Equal(t, "000007", PadNumber(7, 6))
	assert.Equal(t, "000000", PadNumber(0, 6))
	assert.Equal(t, "999999", PadNumber(999999, 6))
	assert.Equal(t, "05", PadNumber(5, 2))
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "456", Suffix("123456", 3))
	assert.Equal(t, "56", Suffix("123456", 2))
	assert.Equal(t, "12", Suffix("12", 3))
	assert.Equal(t, "", Suffix("123", 0))
}

func TestCtypeDigit(t *testing.T) {
	assert.True(t, CtypeDigit("000042"))
	assert.False(t, CtypeDigit(""))
	assert.False(t, CtypeDigit("12a456"))
}

func TestParseAmount(t *testing.T) {
	d, ok := ParseAmount(" 80 ")
	assert.True(t, ok)
	assert.Equal(t, "80.00", TrimDecimal(d))

	_, ok = ParseAmount("-1")
	assert.False(t, ok)
	_, ok = ParseAmount("abc")
	assert.False(t, ok)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if !CheckPassword("admin123", hash) {
		t.Fatalf("password should match")
	}
	if CheckPassword("admin124", hash) {
		t.Fatalf("password should not match")
	}
}

func TestNewRandDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 100; i++ {
		x, y := a.Intn(1000), b.Intn(1000)
		if x != y {
			t.Fatalf("same seed diverged at %d: %d != %d", i, x, y)
		}
		if x < 0 || x >= 1000 {
			t.Fatalf("out of range: %d", x)
		}
	}
	if v := GenerateRandNum(a, 10, 11); v != 10 {
		t.Fatalf("expected 10, got %d", v)
	}
}
