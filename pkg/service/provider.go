// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

// Package service defines the optional external agent service an agent may
// be paired with. The agent holds a Provider but the improvement loop never
// calls it; when no real service is reachable a Noop placeholder stands in.
package service

import "context"

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request encapsulates the input for the service.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Response encapsulates the output from the service.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is an external agent service.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Chat sends a request to the service and returns its response.
	Chat(ctx context.Context, req Request) (*Response, error)
}

// Noop is the placeholder used when no agent service is available.
type Noop struct{}

// Name implements Provider.
func (Noop) Name() string { return "none" }

// Chat implements Provider and always returns an empty response.
func (Noop) Chat(ctx context.Context, req Request) (*Response, error) {
	return &Response{}, nil
}

var _ Provider = Noop{}
