package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// CallHandler implements one registered call target.
type CallHandler func(amount uint64, payload []byte) ([]byte, error)

// CallRouter is an in-process ExternalCaller. Call targets register
// handlers by address; dispatching to an unknown target fails, which the
// execution engine captures per action instead of aborting the batch.
type CallRouter struct {
	mu       sync.RWMutex
	handlers map[string]CallHandler
}

func NewCallRouter() *CallRouter {
	return &CallRouter{handlers: make(map[string]CallHandler)}
}

func (r *CallRouter) Register(target string, handler CallHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.TrimSpace(target)] = handler
}

func (r *CallRouter) Call(_ context.Context, target string, amount uint64, payload []byte) ([]byte, error) {
	r.mu.RLock()
	handler, ok := r.handlers[strings.TrimSpace(target)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown call target %q", target)
	}
	return handler(amount, payload)
}

// ExtensionHandler implements one registered extension's accounting logic.
// It returns the quantity the engine should mint to the caller.
type ExtensionHandler func(caller string, amount uint64, payload []byte) (uint64, error)

// ExtensionHub is an in-process ExtensionGateway for local wiring and
// tests. Whitelisting stays with the engine; the hub only routes calls.
type ExtensionHub struct {
	mu       sync.RWMutex
	handlers map[string]ExtensionHandler
}

func NewExtensionHub() *ExtensionHub {
	return &ExtensionHub{handlers: make(map[string]ExtensionHandler)}
}

func (h *ExtensionHub) Register(extension string, handler ExtensionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[strings.TrimSpace(extension)] = handler
}

func (h *ExtensionHub) CallExtension(_ context.Context, extension string, caller string, amount uint64, payload []byte) (uint64, error) {
	h.mu.RLock()
	handler, ok := h.handlers[strings.TrimSpace(extension)]
	h.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("unknown extension %q", extension)
	}
	return handler(caller, amount, payload)
}
