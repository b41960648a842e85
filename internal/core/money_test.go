package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 1200.00 ", 120000, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if s := (Money{Cents: 110000}).String(); s != "1100.00" {
		t.Fatalf("got %s", s)
	}
	if s := (Money{Cents: 5}).String(); s != "0.05" {
		t.Fatalf("got %s", s)
	}
}

func TestMoneySplit(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		last  int64
		base  int64
	}{
		{120000, 12, 10000, 10000},
		{10000, 3, 3334, 3333},
		{1, 3, 1, 0},
		{0, 4, 0, 0},
		{99999, 7, 14289, 14285},
	}
	for _, tc := range cases {
		shares, err := Money{Cents: tc.total}.Split(tc.n)
		if err != nil {
			t.Fatalf("split %d/%d: %v", tc.total, tc.n, err)
		}
		if len(shares) != tc.n {
			t.Fatalf("split %d/%d: got %d shares", tc.total, tc.n, len(shares))
		}
		var sum int64
		for i, s := range shares {
			sum += s.Cents
			if i < tc.n-1 && s.Cents != tc.base {
				t.Fatalf("split %d/%d: share %d = %d, want %d", tc.total, tc.n, i, s.Cents, tc.base)
			}
		}
		if sum != tc.total {
			t.Fatalf("split %d/%d: sum %d", tc.total, tc.n, sum)
		}
		if shares[tc.n-1].Cents != tc.last {
			t.Fatalf("split %d/%d: last share %d, want %d", tc.total, tc.n, shares[tc.n-1].Cents, tc.last)
		}
	}

	if _, err := (Money{Cents: 100}).Split(0); err == nil {
		t.Fatalf("expected error for zero periods")
	}
	if _, err := (Money{Cents: 100}).Split(MaxInstallments + 1); err == nil {
		t.Fatalf("expected error above %d periods", MaxInstallments)
	}
	if _, err := (Money{Cents: -100}).Split(2); err == nil {
		t.Fatalf("expected error for negative total")
	}
}
