// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

// Package transform implements the agent's unary numeric functions.
//
// A Transform is data, not code: it carries the exponent it raises its input
// to, and Apply evaluates x ** exponent. Integers are raised exactly with
// math/big; floats go through math.Pow.
package transform

import (
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/jllopis/selfimprove/pkg/errors"
)

// BaseExponent is the exponent of the transform an agent starts with.
const BaseExponent = 2

// BaseDescription describes the initial squaring transform.
const BaseDescription = "Basic power function: squaring input."

// Transform raises its input to a fixed exponent.
// The zero value is x ** 0.
type Transform struct {
	exponent int
}

// Power returns the transform f(x) = x ** exponent.
func Power(exponent int) (Transform, error) {
	if exponent < 0 {
		return Transform{}, errors.New(errors.CodeCodegen, "negative exponent", nil).
			WithContext("exponent", exponent)
	}
	return Transform{exponent: exponent}, nil
}

// Exponent returns the exponent the transform raises its input to.
func (t Transform) Exponent() int { return t.exponent }

// String implements fmt.Stringer.
func (t Transform) String() string { return fmt.Sprintf("x ** %d", t.exponent) }

// Describe returns the human-readable description for an improved transform
// with the given exponent.
func Describe(exponent int) string {
	return fmt.Sprintf("Enhanced power function: raising input to the power of %d.", exponent)
}

// Apply evaluates the transform on x.
func (t Transform) Apply(x any) (Value, error) {
	n, err := normalize(x)
	if err != nil {
		return Value{}, err
	}
	if n.isFloat {
		return Value{f: math.Pow(n.f, float64(t.exponent)), isFloat: true}, nil
	}
	r := new(big.Int).Exp(n.i, big.NewInt(int64(t.exponent)), nil)
	return Value{i: r}, nil
}

type number struct {
	i       *big.Int
	f       float64
	isFloat bool
}

func normalize(x any) (number, error) {
	switch v := x.(type) {
	case nil:
		return number{}, invalidInput(x)
	case *big.Int:
		if v == nil {
			return number{}, invalidInput(x)
		}
		return number{i: new(big.Int).Set(v)}, nil
	case big.Int:
		return number{i: new(big.Int).Set(&v)}, nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: big.NewInt(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{i: new(big.Int).SetUint64(rv.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float(), isFloat: true}, nil
	default:
		return number{}, invalidInput(x)
	}
}

func invalidInput(x any) error {
	return errors.New(errors.CodeInvalidInput,
		fmt.Sprintf("unsupported operand type %T for exponentiation", x), nil).
		WithContext("input", fmt.Sprintf("%v", x))
}
