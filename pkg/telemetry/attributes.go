// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides logging, tracing and metrics setup for the agent.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/jllopis/selfimprove/pkg/errors"
)

// Attribute keys used on agent spans, metrics and log records.
const (
	AttrAgentID        = "selfimprove.agent.id"
	AttrAgentVersion   = "selfimprove.agent.version"
	AttrAgentIteration = "selfimprove.agent.iteration"
	AttrAgentMaxIter   = "selfimprove.agent.max_iterations"

	AttrTransformExponent = "selfimprove.transform.exponent"
	AttrInput             = "selfimprove.input"
	AttrOutput            = "selfimprove.output"

	AttrServiceName = "selfimprove.service.name"

	AttrErrorCode = "error.code"
)

// AgentAttributes returns the attributes identifying an agent at a version.
func AgentAttributes(id string, version int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAgentID, id),
		attribute.Int(AttrAgentVersion, version),
	}
}

// ErrorAttributes returns the attributes describing err.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorCode, string(errors.CodeOf(err))),
	}
}
