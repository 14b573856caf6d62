package models

import (
	"fmt"
	"regexp"
	"strconv"
)

var accountCodePattern = regexp.MustCompile(`^(\d{3})-(\d{3})-(\d{3})$`)

// AccountCode is a parsed AAA-BBB-CCC chart code.
type AccountCode struct {
	A int
	B int
	C int
}

// ParseAccountCode checks the textual format only; use Level to check the structure.
func ParseAccountCode(s string) (AccountCode, error) {
	m := accountCodePattern.FindStringSubmatch(s)
	if m == nil {
		return AccountCode{}, invalidArgument("account code %q must match AAA-BBB-CCC", s)
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])
	return AccountCode{A: a, B: b, C: c}, nil
}

func (c AccountCode) String() string {
	return fmt.Sprintf("%03d-%03d-%03d", c.A, c.B, c.C)
}

// Level is 1 for A-000-000, 2 for A-B-000 and 3 for A-B-C.
// A-000-C has no level.
func (c AccountCode) Level() (int, error) {
	switch {
	case c.B == 0 && c.C == 0:
		return 1, nil
	case c.B != 0 && c.C == 0:
		return 2, nil
	case c.B != 0 && c.C != 0:
		return 3, nil
	}
	return 0, invalidArgument("account code %s has a sub-account segment without a group segment", c)
}

// ParentCode strips the lowest non-zero segment. Level 1 codes have no parent.
func (c AccountCode) ParentCode() (AccountCode, bool) {
	level, err := c.Level()
	if err != nil {
		return AccountCode{}, false
	}
	switch level {
	case 2:
		return AccountCode{A: c.A}, true
	case 3:
		return AccountCode{A: c.A, B: c.B}, true
	}
	return AccountCode{}, false
}

// Child returns the level 3 code with the given last segment under a level 2 code.
func (c AccountCode) Child(seq int) AccountCode {
	return AccountCode{A: c.A, B: c.B, C: seq}
}

// MainTypeForPrefix maps the leading segment to an account type.
func MainTypeForPrefix(a int) (AccountMainType, bool) {
	switch {
	case a >= 100 && a <= 199:
		return AccountMainTypeAsset, true
	case a >= 200 && a <= 299:
		return AccountMainTypeLiability, true
	case a >= 300 && a <= 399:
		return AccountMainTypeEquity, true
	case a >= 400 && a <= 499:
		return AccountMainTypeIncome, true
	case a >= 500 && a <= 699:
		return AccountMainTypeExpense, true
	}
	return "", false
}

type Classification struct {
	MainType      AccountMainType `json:"main_type"`
	NormalBalance NormalBalance   `json:"normal_balance"`
	Level         int             `json:"level"`
}

// DeriveClassification is a pure function of the code.
func DeriveClassification(code AccountCode) (Classification, error) {
	level, err := code.Level()
	if err != nil {
		return Classification{}, err
	}
	mainType, ok := MainTypeForPrefix(code.A)
	if !ok {
		return Classification{}, invalidArgument("account code %s is outside the chart ranges 100-699", code)
	}
	return Classification{
		MainType:      mainType,
		NormalBalance: NormalBalanceFor(mainType),
		Level:         level,
	}, nil
}

// IsProtectedName reports codes whose display names are fixed by the predefined
// expense categories and must survive re-seeding.
func (c AccountCode) IsProtectedName() bool {
	return c.A >= 500 && c.A <= 599
}
