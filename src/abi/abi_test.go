package abi

import "testing"

func TestLongBits(t *testing.T) {
	if got := SysV.LongBits(); got != 64 {
		t.Fatalf("SysV.LongBits() = %d, want 64", got)
	}
	if got := MSx64.LongBits(); got != 32 {
		t.Fatalf("MSx64.LongBits() = %d, want 32", got)
	}
}

func TestIsLLP64(t *testing.T) {
	if SysV.IsLLP64() {
		t.Fatal("SysV should not be LLP64")
	}
	if !MSx64.IsLLP64() {
		t.Fatal("MSx64 should be LLP64")
	}
}

func TestStructReturnThresholdBits(t *testing.T) {
	if got := SysV.StructReturnThresholdBits(); got != 128 {
		t.Fatalf("SysV threshold = %d, want 128", got)
	}
	if got := MSx64.StructReturnThresholdBits(); got != 64 {
		t.Fatalf("MSx64 threshold = %d, want 64", got)
	}
}

func TestFitsInRegisters(t *testing.T) {
	cases := []struct {
		abi      TargetAbi
		sizeBits int
		want     bool
	}{
		{SysV, 64, true},
		{SysV, 128, true},
		{SysV, 192, false},
		{MSx64, 64, true},
		{MSx64, 128, false},
	}
	for _, c := range cases {
		if got := c.abi.FitsInRegisters(c.sizeBits); got != c.want {
			t.Errorf("FitsInRegisters(%d) on abi %v = %v, want %v", c.sizeBits, c.abi, got, c.want)
		}
	}
}
