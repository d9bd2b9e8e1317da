package goal

import (
	"regexp"
	"strconv"
	"strings"
)

// Type distinguishes measurable targets from action-only goals.
type Type string

const (
	TypeNumeric Type = "numeric"
	TypeAction  Type = "action"
)

// UnitCurrency is the canonical unit every yen amount normalizes to.
const UnitCurrency = "currency"

// Target is the structured form of a WHAT answer.
type Target struct {
	Type  Type
	Value float64 // meaningful only for TypeNumeric
	Unit  string
}

// Multipliers for the large-number suffixes common in Japanese business
// targets: 万 is ten thousand, 億 is one hundred million.
const (
	manMultiplier = 10_000
	okuMultiplier = 100_000_000
)

var targetRe = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*(万|億)?\s*(円|yen)?`)

// ParseTarget extracts the first numeric token of a WHAT answer together with
// its optional multiplier and unit suffixes. 300万円 and "3,000,000 yen" both
// normalize to value 3000000 with the canonical currency unit. An answer with
// no numeric token at all becomes an action-type goal.
func ParseTarget(whatAnswer string) Target {
	m := targetRe.FindStringSubmatch(whatAnswer)
	if m == nil {
		return Target{Type: TypeAction}
	}

	raw := strings.ReplaceAll(m[1], ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Target{Type: TypeAction}
	}

	unit := ""
	switch m[2] {
	case "万":
		value *= manMultiplier
		unit = UnitCurrency
	case "億":
		value *= okuMultiplier
		unit = UnitCurrency
	}
	if m[3] != "" {
		unit = UnitCurrency
	}

	return Target{Type: TypeNumeric, Value: value, Unit: unit}
}
