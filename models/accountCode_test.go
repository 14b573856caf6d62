package models

import (
	"errors"
	"testing"
)

func TestParseAccountCode(t *testing.T) {
	c, err := ParseAccountCode("110-004-017")
	if err != nil {
		t.Fatalf("ParseAccountCode: %v", err)
	}
	if c.A != 110 || c.B != 4 || c.C != 17 {
		t.Fatalf("unexpected segments %+v", c)
	}
	if c.String() != "110-004-017" {
		t.Fatalf("String() = %s", c.String())
	}

	for _, bad := range []string{"", "110-004", "11-004-017", "110-004-0170", "abc-def-ghi", "110_004_017", " 110-004-017"} {
		if _, err := ParseAccountCode(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for %q, got %v", bad, err)
		}
	}
}

func TestAccountCodeLevelAndParent(t *testing.T) {
	cases := []struct {
		code   string
		level  int
		parent string
	}{
		{"100-000-000", 1, ""},
		{"100-001-000", 2, "100-000-000"},
		{"112-002-005", 3, "112-002-000"},
	}
	for _, tc := range cases {
		c, _ := ParseAccountCode(tc.code)
		level, err := c.Level()
		if err != nil || level != tc.level {
			t.Fatalf("%s: level=%d err=%v, want %d", tc.code, level, err, tc.level)
		}
		parent, ok := c.ParentCode()
		if tc.parent == "" {
			if ok {
				t.Fatalf("%s: level 1 should have no parent, got %s", tc.code, parent)
			}
			continue
		}
		if !ok || parent.String() != tc.parent {
			t.Fatalf("%s: parent=%s ok=%v, want %s", tc.code, parent, ok, tc.parent)
		}
	}

	c, _ := ParseAccountCode("100-000-005")
	if _, err := c.Level(); err == nil {
		t.Fatalf("expected structural error for 100-000-005")
	}
	if _, ok := c.ParentCode(); ok {
		t.Fatalf("malformed code should have no parent")
	}
}

func TestDeriveClassification(t *testing.T) {
	cases := []struct {
		code    string
		expType AccountMainType
		expSide NormalBalance
	}{
		{"110-000-000", AccountMainTypeAsset, NormalBalanceDebit},
		{"210-001-000", AccountMainTypeLiability, NormalBalanceCredit},
		{"310-001-001", AccountMainTypeEquity, NormalBalanceCredit},
		{"410-001-001", AccountMainTypeIncome, NormalBalanceCredit},
		{"510-001-001", AccountMainTypeExpense, NormalBalanceDebit},
		{"610-001-001", AccountMainTypeExpense, NormalBalanceDebit},
	}
	for _, tc := range cases {
		c, _ := ParseAccountCode(tc.code)
		got, err := DeriveClassification(c)
		if err != nil {
			t.Fatalf("%s: %v", tc.code, err)
		}
		if got.MainType != tc.expType || got.NormalBalance != tc.expSide {
			t.Fatalf("%s: got %+v", tc.code, got)
		}
	}

	c, _ := ParseAccountCode("700-000-000")
	if _, err := DeriveClassification(c); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestProtectedNameRange(t *testing.T) {
	for code, want := range map[string]bool{
		"499-999-999": false,
		"500-000-000": true,
		"510-001-001": true,
		"599-999-999": true,
		"610-001-001": false,
	} {
		c, _ := ParseAccountCode(code)
		if c.IsProtectedName() != want {
			t.Fatalf("%s: IsProtectedName=%v want %v", code, !want, want)
		}
	}
}

func TestParseMovementKindAnyCase(t *testing.T) {
	for in, want := range map[string]MovementKind{
		"entry":      MovementKindEntry,
		"Exit":       MovementKindExit,
		" ADJUSTMENT": MovementKindAdjustment,
	} {
		got, err := ParseMovementKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseMovementKind(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseMovementKind("transfer"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
