package server

import (
	"context"
	"sync"

	"github.com/chatcal/schedcore/internal/availability"
	"github.com/chatcal/schedcore/internal/credentials"
	"github.com/chatcal/schedcore/internal/instrumentation"
	"github.com/chatcal/schedcore/internal/meeting"
	"github.com/chatcal/schedcore/internal/temporal"
)

// ServerContext holds the wired scheduling components shared by the MCP
// tools for the lifetime of the server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	resolver  *temporal.Resolver
	engine    *availability.Engine
	scheduler *meeting.Scheduler
	vault     *credentials.Vault
	metrics   *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context over the wired components.
func NewServerContext(ctx context.Context, resolver *temporal.Resolver, engine *availability.Engine, scheduler *meeting.Scheduler, vault *credentials.Vault, metrics *instrumentation.Metrics) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		resolver:  resolver,
		engine:    engine,
		scheduler: scheduler,
		vault:     vault,
		metrics:   metrics,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Resolver returns the temporal resolver.
func (sc *ServerContext) Resolver() *temporal.Resolver {
	return sc.resolver
}

// Engine returns the availability engine.
func (sc *ServerContext) Engine() *availability.Engine {
	return sc.engine
}

// Scheduler returns the meeting scheduler.
func (sc *ServerContext) Scheduler() *meeting.Scheduler {
	return sc.scheduler
}

// Vault returns the credential vault.
func (sc *ServerContext) Vault() *credentials.Vault {
	return sc.vault
}

// Metrics returns the metrics recorder. Never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
