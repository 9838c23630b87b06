package ethereum

import (
	"math/big"
	"testing"
)

func TestFromBaseUnits(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		decimals int32
		want     string
	}{
		{"18-decimal native asset", "1500000000000000000", 18, "1.5"},
		{"6-decimal stablecoin", "250000000", 6, "250"},
		{"zero", "0", 18, "0"},
		{"smallest positive unit", "1", 18, "0.000000000000000001"},
		{"smallest positive 6-decimal unit", "1", 6, "0.000001"},
		{"value below one", "123456", 6, "0.123456"},
		{"large supply", "1000000000000000000000000000", 18, "1000000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, _ := new(big.Int).SetString(tc.raw, 10)
			got := FromBaseUnits(raw, tc.decimals)
			if got.String() != tc.want {
				t.Errorf("FromBaseUnits(%s, %d) = %s, want %s", tc.raw, tc.decimals, got.String(), tc.want)
			}
		})
	}
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	// base-unit integer -> decimal -> base-unit integer must recover the
	// original value exactly for every representable balance
	values := []string{
		"0",
		"1",
		"999999",
		"1000000",
		"1500000000000000000",
		"123456789012345678901234567890",
	}
	decimals := []int32{6, 8, 18}

	for _, value := range values {
		for _, d := range decimals {
			raw, _ := new(big.Int).SetString(value, 10)
			back := ToBaseUnits(FromBaseUnits(raw, d), d)
			if raw.Cmp(back) != 0 {
				t.Errorf("round trip %s at %d decimals: got %s", value, d, back.String())
			}
		}
	}
}

func TestFromBaseUnitsPositivity(t *testing.T) {
	// the "> 0" holding filter relies on exact positivity
	zero := FromBaseUnits(big.NewInt(0), 18)
	if zero.IsPositive() {
		t.Error("zero base units must not be positive")
	}

	one := FromBaseUnits(big.NewInt(1), 18)
	if !one.IsPositive() {
		t.Error("one base unit must be positive")
	}
}
