// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/selfimprove/pkg/errors"
	"github.com/jllopis/selfimprove/pkg/telemetry"
)

// fail records err on the span, in metrics and in the log, and returns it
// unchanged. Errors are never recovered here.
func (a *Agent) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(telemetry.ErrorAttributes(err)...)
	a.metrics.RecordError(ctx, a.id, operation, err)
	a.logger.ErrorContext(ctx, "agent operation failed",
		"operation", operation,
		telemetry.AttrErrorCode, string(errors.CodeOf(err)),
		"error", err,
	)
	return err
}

// abort marks the loop span failed for an error already recorded by the
// operation that produced it.
func (a *Agent) abort(span trace.Span, iteration int, err error) error {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(append(telemetry.ErrorAttributes(err),
		attribute.Int(telemetry.AttrAgentIteration, iteration+1))...)
	return err
}
