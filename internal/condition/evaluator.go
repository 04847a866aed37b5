// Package condition evaluates notification rule expressions such as
//
//	battery < 20 AND reachable = true
//	temperature > 80 OR temperature < 50
//
// The grammar has no grouping or precedence: an expression is split on " OR "
// first, then each part on " AND ", then each term is a single comparison.
// "A AND B OR C" therefore reads as (A AND B) OR C.
package condition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"homecore/internal/models"
)

const (
	orToken  = " OR "
	andToken = " AND "

	// floatEpsilon is the tolerance for = and != on floating point values
	floatEpsilon = 0.01
)

// operators in match order: two-character operators first so ">=" is not read as ">"
var operators = []string{">=", "<=", "!=", ">", "<", "="}

// Lookup resolves a property against live device state
type Lookup func(models.Property) (models.Value, bool)

// ErrMalformed is returned by Validate for expressions that can never match
var ErrMalformed = errors.New("malformed condition")

// Evaluate reports whether expr holds. It never fails: unknown properties,
// missing values and malformed literals make the affected term false.
func Evaluate(expr string, lookup Lookup) bool {
	if strings.Contains(expr, orToken) {
		for _, part := range strings.Split(expr, orToken) {
			if Evaluate(part, lookup) {
				return true
			}
		}
		return false
	}
	if strings.Contains(expr, andToken) {
		for _, part := range strings.Split(expr, andToken) {
			if !evaluateTerm(part, lookup) {
				return false
			}
		}
		return true
	}
	return evaluateTerm(expr, lookup)
}

// EvaluateSet is Evaluate against a fixed property set
func EvaluateSet(expr string, props models.PropertySet) bool {
	return Evaluate(expr, props.Lookup)
}

// term is one parsed comparison
type term struct {
	property models.Property
	op       string
	literal  string
}

func parseTerm(s string) (term, error) {
	s = strings.TrimSpace(s)
	for _, op := range operators {
		idx := strings.Index(s, op)
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(s[:idx])
		literal := strings.TrimSpace(s[idx+len(op):])
		if name == "" || literal == "" {
			return term{}, fmt.Errorf("%w: %q is missing an operand", ErrMalformed, s)
		}
		prop, ok := models.ParseProperty(name)
		if !ok {
			return term{}, fmt.Errorf("%w: unknown property %q", ErrMalformed, name)
		}
		return term{property: prop, op: op, literal: literal}, nil
	}
	return term{}, fmt.Errorf("%w: %q has no comparison operator", ErrMalformed, s)
}

func evaluateTerm(s string, lookup Lookup) bool {
	t, err := parseTerm(s)
	if err != nil {
		return false
	}
	actual, ok := lookup(t.property)
	if !ok {
		return false
	}
	return compare(actual, t.op, t.literal)
}

// compare dispatches on the runtime kind of the observed value
func compare(actual models.Value, op, literal string) bool {
	switch actual.Kind() {
	case models.KindBool:
		a, _ := actual.AsBool()
		return compareEquality(a == parseTruthy(literal), op)
	case models.KindString:
		a, _ := actual.AsString()
		return compareEquality(strings.EqualFold(a, literal), op)
	case models.KindInt:
		a, _ := actual.AsInt()
		if want, ok := parseBinaryState(literal); ok {
			return compareInts(a, op, want)
		}
		if want, err := strconv.ParseInt(literal, 10, 64); err == nil {
			return compareInts(a, op, want)
		}
		if want, err := strconv.ParseFloat(literal, 64); err == nil {
			return compareFloats(float64(a), op, want)
		}
		return false
	case models.KindFloat:
		a, _ := actual.AsFloat()
		if want, ok := parseBinaryState(literal); ok {
			return compareFloats(a, op, float64(want))
		}
		if want, err := strconv.ParseFloat(literal, 64); err == nil {
			return compareFloats(a, op, want)
		}
		return false
	}
	return false
}

func parseTruthy(literal string) bool {
	switch strings.ToLower(literal) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseBinaryState maps binary sensor words onto their integer encoding
func parseBinaryState(literal string) (int64, bool) {
	switch strings.ToLower(literal) {
	case "open", "detected":
		return 0, true
	case "closed", "clear":
		return 1, true
	}
	return 0, false
}

func compareEquality(equal bool, op string) bool {
	switch op {
	case "=":
		return equal
	case "!=":
		return !equal
	}
	return false
}

func compareInts(a int64, op string, b int64) bool {
	switch op {
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "!=":
		return a != b
	case ">":
		return a > b
	case "<":
		return a < b
	case "=":
		return a == b
	}
	return false
}

func compareFloats(a float64, op string, b float64) bool {
	switch op {
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "!=":
		return math.Abs(a-b) >= floatEpsilon
	case ">":
		return a > b
	case "<":
		return a < b
	case "=":
		return math.Abs(a-b) < floatEpsilon
	}
	return false
}

// Validate reports the first term of expr that can never be evaluated
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("%w: empty expression", ErrMalformed)
	}
	for _, t := range terms(expr) {
		if _, err := parseTerm(t); err != nil {
			return err
		}
	}
	return nil
}

// Properties lists the distinct properties referenced by expr, skipping malformed terms
func Properties(expr string) []models.Property {
	seen := make(map[models.Property]bool)
	var props []models.Property
	for _, s := range terms(expr) {
		t, err := parseTerm(s)
		if err != nil || seen[t.property] {
			continue
		}
		seen[t.property] = true
		props = append(props, t.property)
	}
	return props
}

func terms(expr string) []string {
	var out []string
	for _, or := range strings.Split(expr, orToken) {
		out = append(out, strings.Split(or, andToken)...)
	}
	return out
}
