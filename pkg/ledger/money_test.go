package ledger

import "testing"

func TestParseMoney(t *testing.T) {
	t.Run("whole number", func(t *testing.T) {
		m, err := ParseMoney("100")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := m.String(); got != "100.00" {
			t.Errorf("expected 100.00, got %s", got)
		}
	})

	t.Run("two fractional digits", func(t *testing.T) {
		m, err := ParseMoney("42.37")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Minor() != 4237 {
			t.Errorf("expected 4237 minor units, got %d", m.Minor())
		}
	})

	t.Run("single fractional digit pads right", func(t *testing.T) {
		m, err := ParseMoney("5.5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := m.String(); got != "5.50" {
			t.Errorf("expected 5.50, got %s", got)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		m, err := ParseMoney("-10.00")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !m.IsNegative() {
			t.Error("expected negative amount")
		}
	})

	t.Run("rejects more than two fractional digits", func(t *testing.T) {
		if _, err := ParseMoney("1.234"); err == nil {
			t.Error("expected error for three fractional digits")
		}
	})

	t.Run("rejects empty string", func(t *testing.T) {
		if _, err := ParseMoney(""); err == nil {
			t.Error("expected error for empty string")
		}
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustParseMoney("10.00")
	b := MustParseMoney("3.50")

	if got := a.Add(b).String(); got != "13.50" {
		t.Errorf("Add: expected 13.50, got %s", got)
	}
	if got := a.Sub(b).String(); got != "6.50" {
		t.Errorf("Sub: expected 6.50, got %s", got)
	}
	if got := a.Neg().String(); got != "-10.00" {
		t.Errorf("Neg: expected -10.00, got %s", got)
	}
	if got := a.Neg().Abs().String(); got != "10.00" {
		t.Errorf("Abs: expected 10.00, got %s", got)
	}
}

func TestMoneyWithinTolerance(t *testing.T) {
	tolerance := MustParseMoney("0.01")

	cases := []struct {
		name string
		net  Money
		want bool
	}{
		{"exact zero", Zero, true},
		{"one cent over", MustParseMoney("0.01"), true},
		{"two cents over", MustParseMoney("0.02"), false},
		{"negative one cent", MustParseMoney("-0.01"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.net.WithinTolerance(tolerance); got != tc.want {
				t.Errorf("WithinTolerance(%s) = %v, want %v", tc.net, got, tc.want)
			}
		})
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := MustParseMoney("123.45")
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var back Money
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back.Cmp(m) != 0 {
		t.Errorf("round trip mismatch: got %s, want %s", back, m)
	}
}
