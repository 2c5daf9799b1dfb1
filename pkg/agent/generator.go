// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"

	"github.com/jllopis/selfimprove/pkg/transform"
)

// Generator synthesises the transform for an improvement step.
// Errors returned by Generate leave the agent unchanged.
type Generator interface {
	Generate(ctx context.Context, exponent int) (transform.Transform, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, exponent int) (transform.Transform, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, exponent int) (transform.Transform, error) {
	return f(ctx, exponent)
}

// PowerGenerator builds plain power transforms.
type PowerGenerator struct{}

// Generate implements Generator.
func (PowerGenerator) Generate(_ context.Context, exponent int) (transform.Transform, error) {
	return transform.Power(exponent)
}
