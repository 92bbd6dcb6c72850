// Condition evaluation for workflow runs: a single predicate over the
// observation produced by the trigger capability.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Observation is the structured data a trigger capability returns.
type Observation map[string]any

// ActionResult is the payload an action capability returns after performing.
type ActionResult map[string]any

// ConditionOperator enumerates the supported comparison operators.
type ConditionOperator string

const (
	OperatorEquals    ConditionOperator = "equals"
	OperatorNotEquals ConditionOperator = "not_equals"
	OperatorGreater   ConditionOperator = "greater"
	OperatorLess      ConditionOperator = "less"
	OperatorContains  ConditionOperator = "contains"
)

// ErrTypeMismatch indicates a numeric operator was applied to a non-numeric operand.
var ErrTypeMismatch = errors.New("condition operands are not numeric")

// Condition compares a field of the trigger observation against a fixed value.
// It is embedded in a Workflow, never persisted on its own.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals greater less contains"`
	Compare  string            `json:"compare"`
}

// Evaluate applies the condition to an observation. equals/not_equals compare
// numerically when both sides parse as numbers, otherwise as exact strings.
// greater/less require numeric operands; a missing field evaluates to false
// without raising, a present but non-numeric operand fails with ErrTypeMismatch.
func (c *Condition) Evaluate(obs Observation) (bool, error) {
	raw, found := obs[c.Field]

	switch c.Operator {
	case OperatorEquals, OperatorNotEquals:
		actual := coerceString(raw)

		equal := actual == c.Compare
		if a, aerr := coerceFloat(raw); aerr == nil {
			if b, berr := strconv.ParseFloat(c.Compare, 64); berr == nil {
				equal = a == b
			}
		}

		if c.Operator == OperatorNotEquals {
			return !equal, nil
		}

		return equal, nil

	case OperatorGreater, OperatorLess:
		if !found {
			return false, nil
		}

		actual, err := coerceFloat(raw)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", c.Field, err)
		}

		compare, err := strconv.ParseFloat(c.Compare, 64)
		if err != nil {
			return false, fmt.Errorf("compare value %q: %w", c.Compare, ErrTypeMismatch)
		}

		if c.Operator == OperatorGreater {
			return actual > compare, nil
		}

		return actual < compare, nil

	case OperatorContains:
		return strings.Contains(coerceString(raw), c.Compare), nil

	default:
		return false, fmt.Errorf("unsupported condition operator: %s", c.Operator)
	}
}

// coerceString renders an observation value for string comparison. A missing
// field (nil) is treated as the empty string.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func coerceFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", val, ErrTypeMismatch)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("%T: %w", v, ErrTypeMismatch)
	}
}
