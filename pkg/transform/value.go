// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jllopis/selfimprove/pkg/errors"
)

// Value is the result of applying a Transform.
type Value struct {
	i       *big.Int
	f       float64
	isFloat bool
}

// IsFloat reports whether the value is a floating point result.
func (v Value) IsFloat() bool { return v.isFloat }

// Int returns a copy of the integer result, or nil for float results.
func (v Value) Int() *big.Int {
	if v.isFloat || v.i == nil {
		return nil
	}
	return new(big.Int).Set(v.i)
}

// Float returns the result as a float64. Integer results may lose precision.
func (v Value) Float() float64 {
	if v.isFloat {
		return v.f
	}
	if v.i == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.i).Float64()
	return f
}

// String renders integers in decimal and floats in their shortest round-trip
// form with a fractional part always present ("4.0", "6.25", "1e+22").
func (v Value) String() string {
	if v.isFloat {
		return formatFloat(v.f)
	}
	if v.i == nil {
		return "0"
	}
	return v.i.String()
}

// FormatInput renders an input value the same way results are rendered.
// Unsupported inputs fall back to their default formatting.
func FormatInput(x any) string {
	n, err := normalize(x)
	if err != nil {
		return fmt.Sprint(x)
	}
	return Value(n).String()
}

// ParseNumber parses text into an input value: integer literals become exact
// integers (int64, or *big.Int when they overflow), anything else must parse
// as a float.
func ParseNumber(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.CodeInvalidInput, "empty numeric input", nil)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if b, ok := new(big.Int).SetString(s, 10); ok {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "not a number", err).
			WithContext("input", s)
	}
	return f, nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
