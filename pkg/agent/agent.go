// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the self-improving agent: a version counter, a
// description and a power transform that each improvement step replaces with
// one of a higher exponent.
package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/selfimprove/pkg/errors"
	"github.com/jllopis/selfimprove/pkg/service"
	"github.com/jllopis/selfimprove/pkg/telemetry"
	"github.com/jllopis/selfimprove/pkg/transform"
)

// TracerName is the instrumentation scope of agent spans.
const TracerName = "selfimprove/agent"

// Defaults for IterativeImprovement.
const (
	DefaultIterations = 3
	DefaultDelay      = time.Second
)

// Agent holds the current transform and its bookkeeping.
// It is not safe for concurrent use.
type Agent struct {
	id          string
	version     int
	description string
	transform   transform.Transform

	generator Generator
	service   service.Provider
	out       io.Writer
	logger    *slog.Logger
	sleep     func(time.Duration)
	tracer    trace.Tracer
	metrics   *telemetry.AgentMetrics
}

// Option configures an Agent instance.
type Option func(*Agent) error

// New creates an agent at version 1 with the squaring transform.
func New(opts ...Option) (*Agent, error) {
	base, err := transform.Power(transform.BaseExponent)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		id:          uuid.NewString(),
		version:     1,
		description: transform.BaseDescription,
		transform:   base,
		generator:   PowerGenerator{},
		service:     service.Noop{},
		out:         os.Stdout,
		logger:      slog.Default(),
		sleep:       time.Sleep,
		tracer:      otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	a.logger = a.logger.With(telemetry.AttrAgentID, a.id)
	return a, nil
}

// WithID sets the agent identifier used in logs and traces.
func WithID(id string) Option {
	return func(a *Agent) error {
		a.id = id
		return nil
	}
}

// WithOutput sets where demo lines are printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Agent) error {
		if w == nil {
			return fmt.Errorf("output writer is required")
		}
		a.out = w
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// WithGenerator replaces the transform generator.
func WithGenerator(g Generator) Option {
	return func(a *Agent) error {
		if g == nil {
			return fmt.Errorf("generator is required")
		}
		a.generator = g
		return nil
	}
}

// WithSleeper replaces time.Sleep for the delay between improvement cycles.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(a *Agent) error {
		if sleep == nil {
			return fmt.Errorf("sleeper is required")
		}
		a.sleep = sleep
		return nil
	}
}

// WithService attaches an external agent service. A nil provider keeps the
// Noop placeholder.
func WithService(p service.Provider) Option {
	return func(a *Agent) error {
		if p != nil {
			a.service = p
		}
		return nil
	}
}

// WithTracerProvider sets the tracer provider used for agent spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Agent) error {
		if tp != nil {
			a.tracer = tp.Tracer(TracerName)
		}
		return nil
	}
}

// WithMetrics records agent metrics on m.
func WithMetrics(m *telemetry.AgentMetrics) Option {
	return func(a *Agent) error {
		a.metrics = m
		return nil
	}
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Version returns the number of the current improvement generation, starting at 1.
func (a *Agent) Version() int { return a.version }

// Description returns the text describing the current transform.
func (a *Agent) Description() string { return a.description }

// Exponent returns the exponent of the installed transform.
func (a *Agent) Exponent() int { return a.transform.Exponent() }

// Service returns the attached agent service.
func (a *Agent) Service() service.Provider { return a.service }

// Apply evaluates the current transform on input without printing.
func (a *Agent) Apply(input any) (transform.Value, error) {
	return a.transform.Apply(input)
}

// Run applies the current transform to input and prints the version,
// description, input and result.
func (a *Agent) Run(ctx context.Context, input any) error {
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		append(telemetry.AgentAttributes(a.id, a.version),
			attribute.Int(telemetry.AttrTransformExponent, a.transform.Exponent()),
			attribute.String(telemetry.AttrInput, transform.FormatInput(input)),
		)...,
	))
	defer span.End()

	result, err := a.transform.Apply(input)
	if err != nil {
		return a.fail(ctx, span, "run", err)
	}
	a.metrics.RecordRun(ctx, a.id)
	span.SetAttributes(attribute.String(telemetry.AttrOutput, result.String()))
	a.logger.DebugContext(ctx, "transform applied",
		telemetry.AttrAgentVersion, a.version,
		telemetry.AttrInput, transform.FormatInput(input),
		telemetry.AttrOutput, result.String(),
	)

	if err := a.printf("[Version %d] %s\n", a.version, a.description); err != nil {
		return a.fail(ctx, span, "run", err)
	}
	if err := a.printf("Input: %s --> Output: %s\n", transform.FormatInput(input), result); err != nil {
		return a.fail(ctx, span, "run", err)
	}
	return nil
}

// SelfImprove bumps the version, installs a transform raising its input to
// the new version+1 and regenerates the description. On failure nothing
// changes.
func (a *Agent) SelfImprove(ctx context.Context) error {
	version := a.version + 1
	newExponent := version + 1
	ctx, span := a.tracer.Start(ctx, "agent.self_improve", trace.WithAttributes(
		append(telemetry.AgentAttributes(a.id, a.version),
			attribute.Int(telemetry.AttrTransformExponent, newExponent),
		)...,
	))
	defer span.End()

	next, err := a.generator.Generate(ctx, newExponent)
	if err != nil {
		if !errors.IsCode(err, errors.CodeCodegen) {
			err = errors.New(errors.CodeCodegen, "generate transform", err).
				WithContext("exponent", newExponent)
		}
		return a.fail(ctx, span, "self_improve", err)
	}
	if next.Exponent() != newExponent {
		err := errors.New(errors.CodeCodegen,
			fmt.Sprintf("generated transform has exponent %d, want %d", next.Exponent(), newExponent), nil)
		return a.fail(ctx, span, "self_improve", err)
	}

	a.transform = next
	a.version = version
	a.description = transform.Describe(newExponent)

	a.metrics.RecordImprovement(ctx, a.id, version)
	span.SetAttributes(attribute.Int(telemetry.AttrAgentVersion, version))
	a.logger.InfoContext(ctx, "agent improved",
		telemetry.AttrAgentVersion, version,
		telemetry.AttrTransformExponent, newExponent,
	)

	if err := a.printf("Agent self-improvement complete. Upgraded to version %d.\n", version); err != nil {
		return a.fail(ctx, span, "self_improve", err)
	}
	return nil
}

// IterativeImprovement runs iterations cycles of Run(input) followed by
// SelfImprove, sleeping delay after every cycle including the last. The
// first error aborts the loop and is returned. The delay is not interrupted
// by ctx.
func (a *Agent) IterativeImprovement(ctx context.Context, input any, iterations int, delay time.Duration) error {
	if iterations < 0 {
		return errors.New(errors.CodeInvalidInput, "iterations must be non-negative", nil).
			WithContext("iterations", iterations)
	}
	if delay < 0 {
		return errors.New(errors.CodeInvalidInput, "delay must be non-negative", nil).
			WithContext("delay", delay.String())
	}

	ctx, span := a.tracer.Start(ctx, "agent.iterative_improvement", trace.WithAttributes(
		append(telemetry.AgentAttributes(a.id, a.version),
			attribute.Int(telemetry.AttrAgentMaxIter, iterations),
		)...,
	))
	defer span.End()

	for i := 0; i < iterations; i++ {
		a.logger.DebugContext(ctx, "improvement cycle", telemetry.AttrAgentIteration, i+1)

		if err := a.printf("\n--- Running Agent ---\n"); err != nil {
			return a.fail(ctx, span, "iterative_improvement", err)
		}
		if err := a.Run(ctx, input); err != nil {
			return a.abort(span, i, err)
		}
		if err := a.printf("--- Initiating Self-Improvement ---\n"); err != nil {
			return a.fail(ctx, span, "iterative_improvement", err)
		}
		if err := a.SelfImprove(ctx); err != nil {
			return a.abort(span, i, err)
		}
		a.sleep(delay)
	}
	span.SetAttributes(attribute.Int(telemetry.AttrAgentVersion, a.version))
	return nil
}

func (a *Agent) printf(format string, args ...any) error {
	if _, err := fmt.Fprintf(a.out, format, args...); err != nil {
		return errors.New(errors.CodeInternal, "write output", err)
	}
	return nil
}
