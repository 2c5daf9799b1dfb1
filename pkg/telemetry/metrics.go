// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the agent metrics.
const MeterName = "selfimprove/agent"

// AgentMetrics records runs, improvements and failures of an agent.
// A nil *AgentMetrics is valid and records nothing.
type AgentMetrics struct {
	runs         metric.Int64Counter
	improvements metric.Int64Counter
	errors       metric.Int64Counter
	version      metric.Int64Gauge
}

// NewAgentMetrics creates the agent instruments on the global meter provider.
func NewAgentMetrics() (*AgentMetrics, error) {
	return NewAgentMetricsWithMeter(otel.Meter(MeterName))
}

// NewAgentMetricsWithMeter creates the agent instruments on meter.
func NewAgentMetricsWithMeter(meter metric.Meter) (*AgentMetrics, error) {
	runs, err := meter.Int64Counter(
		"selfimprove.runs",
		metric.WithDescription("Transform applications by agent"),
	)
	if err != nil {
		return nil, err
	}

	improvements, err := meter.Int64Counter(
		"selfimprove.improvements",
		metric.WithDescription("Successful self-improvement steps by agent"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"selfimprove.errors",
		metric.WithDescription("Failed agent operations by error code"),
	)
	if err != nil {
		return nil, err
	}

	version, err := meter.Int64Gauge(
		"selfimprove.version",
		metric.WithDescription("Current agent version"),
	)
	if err != nil {
		return nil, err
	}

	return &AgentMetrics{
		runs:         runs,
		improvements: improvements,
		errors:       errs,
		version:      version,
	}, nil
}

// RecordRun counts one transform application.
func (m *AgentMetrics) RecordRun(ctx context.Context, agentID string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrAgentID, agentID)))
}

// RecordImprovement counts one improvement and records the version reached.
func (m *AgentMetrics) RecordImprovement(ctx context.Context, agentID string, version int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrAgentID, agentID))
	m.improvements.Add(ctx, 1, attrs)
	m.version.Record(ctx, int64(version), attrs)
}

// RecordError counts a failed operation by its error code.
func (m *AgentMetrics) RecordError(ctx context.Context, agentID, operation string, err error) {
	if m == nil || err == nil {
		return
	}
	attrs := append(ErrorAttributes(err),
		attribute.String(AttrAgentID, agentID),
		attribute.String("operation", operation),
	)
	m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}
