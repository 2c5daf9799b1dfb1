// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Config selects the agent service.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Resolve returns the configured provider when it is reachable and the Noop
// placeholder otherwise. It never fails: an unavailable service is logged and
// replaced so the agent can run standalone.
func Resolve(ctx context.Context, cfg Config, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", "noop":
		return Noop{}
	case "ollama":
		p := NewOllama(cfg.BaseURL, cfg.Model)
		pingCtx := ctx
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		if err := p.Ping(pingCtx); err != nil {
			logger.WarnContext(ctx, "agent service unavailable, using placeholder",
				"provider", cfg.Provider, "error", err)
			return Noop{}
		}
		logger.DebugContext(ctx, "agent service available", "provider", p.Name(), "base_url", p.baseURL)
		return p
	default:
		logger.WarnContext(ctx, "unknown agent service provider, using placeholder", "provider", cfg.Provider)
		return Noop{}
	}
}
