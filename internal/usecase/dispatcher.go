// Package usecase contains the request dispatcher and the named handlers it
// routes to.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// Route binds a message type to a named handler. The route table is built at
// startup and immutable afterwards.
type Route struct {
	Type    string
	Handler string
	// Middlewares optionally restricts which named middlewares run for
	// this type, in chain order; empty means the full chain.
	Middlewares []string
	// RatePerMin optionally overrides the tab-scope rate limit for this
	// type; merged into the limiter configuration at startup.
	RatePerMin int
}

// RateOverrides collects the per-route rate limits into a limiter override
// table.
func RateOverrides(routes []Route) map[string]int {
	out := make(map[string]int)
	for _, r := range routes {
		if r.RatePerMin > 0 {
			out[r.Type] = r.RatePerMin
		}
	}
	return out
}

// DefaultRoutes returns the static route table for the assistant surface.
func DefaultRoutes() []Route {
	return []Route{
		{Type: domain.TypeCompletion, Handler: "completion.generate"},
		{Type: domain.TypeHint, Handler: "hint.generate"},
		{Type: domain.TypeExplanation, Handler: "explanation.generate"},
		{Type: domain.TypeOptimization, Handler: "optimization.generate"},
		{Type: domain.TypeChat, Handler: "chat.respond"},
		{Type: domain.TypeConfigSave, Handler: "config.save"},
		{Type: domain.TypeConfigGet, Handler: "config.get"},
		{Type: domain.TypeHintsReset, Handler: "hints.reset"},
	}
}

// Middleware inspects an enriched request before dispatch. A nil return
// passes; an error blocks the dispatch and is surfaced as-is.
type Middleware interface {
	Name() string
	Check(ctx context.Context, req *domain.Request) error
}

// DispatcherConfig is the explicit configuration handed to NewDispatcher —
// no module-level registries.
type DispatcherConfig struct {
	Routes         []Route
	Handlers       map[string]domain.Handler
	Middlewares    []Middleware
	AllowedOrigins []string
	// OnDispatch is invoked once per Dispatch with the bounded request type
	// and the outcome (rejected, blocked, failed, ok). Metrics hook; nil is
	// allowed.
	OnDispatch func(requestType, outcome string)
}

// Dispatcher validates inbound envelopes, applies the ordered middleware
// chain and dispatches to the target handler.
type Dispatcher struct {
	routes         map[string]Route
	handlers       map[string]domain.Handler
	allowedOrigins []string
	validate       *validator.Validate
	onDispatch     func(requestType, outcome string)

	mu          sync.RWMutex
	middlewares []Middleware

	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewDispatcher constructs a Dispatcher from explicit configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	routes := make(map[string]Route, len(cfg.Routes))
	for _, r := range cfg.Routes {
		routes[r.Type] = r
	}
	return &Dispatcher{
		routes:         routes,
		handlers:       cfg.Handlers,
		allowedOrigins: cfg.AllowedOrigins,
		validate:       validator.New(),
		onDispatch:     cfg.OnDispatch,
		middlewares:    append([]Middleware(nil), cfg.Middlewares...),
		now:            time.Now,
		entropy:        ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // Weak random is sufficient for ULID entropy.
	}
}

// Use appends a middleware; insertion order is preserved.
func (d *Dispatcher) Use(mw Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, mw)
}

// RemoveMiddleware removes the middleware with the given name, if present.
func (d *Dispatcher) RemoveMiddleware(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.middlewares[:0]
	for _, mw := range d.middlewares {
		if mw.Name() != name {
			out = append(out, mw)
		}
	}
	d.middlewares = out
}

// Validate checks the envelope's structure, origin and type-specific payload
// fields. It is total and side-effect-free, returning the typed payload
// variant on success.
func (d *Dispatcher) Validate(env domain.Envelope) (any, error) {
	if strings.TrimSpace(env.Type) == "" {
		return nil, fmt.Errorf("%w: missing type field", domain.ErrMalformedRequest)
	}
	if !d.originAllowed(env.Origin) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownOrigin, env.Origin)
	}

	body, err := d.parsePayload(env)
	if err != nil {
		return nil, err
	}
	if body != nil {
		if err := d.validate.Struct(body); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPayload, fieldErrors(err))
		}
	}
	return body, nil
}

// parsePayload maps the envelope onto its typed variant. Unknown types carry
// no payload requirements; they fail later at route lookup.
func (d *Dispatcher) parsePayload(env domain.Envelope) (any, error) {
	var body any
	switch env.Type {
	case domain.TypeCompletion:
		body = &domain.CompletionRequest{}
	case domain.TypeHint:
		body = &domain.HintRequest{}
	case domain.TypeExplanation:
		body = &domain.ExplanationRequest{}
	case domain.TypeOptimization:
		body = &domain.OptimizationRequest{}
	case domain.TypeChat:
		body = &domain.ChatRequest{}
	case domain.TypeConfigSave:
		body = &domain.SaveConfigRequest{}
	case domain.TypeConfigGet:
		return &domain.GetConfigRequest{}, nil
	case domain.TypeHintsReset:
		body = &domain.ResetHintsRequest{}
	default:
		return nil, nil
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload for type %q", domain.ErrInvalidPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, body); err != nil {
		return nil, fmt.Errorf("%w: payload is not a structured object", domain.ErrMalformedRequest)
	}
	return body, nil
}

func (d *Dispatcher) originAllowed(origin string) bool {
	if len(d.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range d.allowedOrigins {
		if allowed == origin {
			return true
		}
		if strings.HasSuffix(allowed, "*") && strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

// Dispatch validates, routes and runs the middleware chain, then invokes the
// target handler with the enriched request. The first blocking middleware
// short-circuits the whole dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, env domain.Envelope) (any, error) {
	body, err := d.Validate(env)
	if err != nil {
		d.track(env.Type, "rejected")
		return nil, err
	}

	route, ok := d.routes[env.Type]
	if !ok {
		d.track(env.Type, "rejected")
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRoute, env.Type)
	}

	req := &domain.Request{
		Envelope:     env,
		ID:           d.newDispatchID(),
		HandlerName:  route.Handler,
		DispatchedAt: d.now(),
		Body:         body,
	}

	d.mu.RLock()
	chain := append([]Middleware(nil), d.middlewares...)
	d.mu.RUnlock()
	if len(route.Middlewares) > 0 {
		chain = filterChain(chain, route.Middlewares)
	}

	for _, mw := range chain {
		if err := mw.Check(ctx, req); err != nil {
			d.track(env.Type, "blocked")
			return nil, err
		}
	}

	handler, ok := d.handlers[route.Handler]
	if !ok {
		d.track(env.Type, "rejected")
		return nil, fmt.Errorf("%w: handler %q not registered", domain.ErrUnknownRoute, route.Handler)
	}

	res, err := handler(ctx, req)
	if err != nil {
		d.track(env.Type, "failed")
		return nil, err
	}
	d.track(env.Type, "ok")
	return res, nil
}

func (d *Dispatcher) track(requestType, outcome string) {
	if d.onDispatch != nil {
		d.onDispatch(labelType(requestType), outcome)
	}
}

func (d *Dispatcher) newDispatchID() string {
	id, err := ulid.New(ulid.Timestamp(d.now()), d.entropy)
	if err != nil {
		return fmt.Sprintf("dsp-%d", d.now().UnixNano())
	}
	return id.String()
}

// filterChain keeps only the named middlewares, preserving chain order.
func filterChain(chain []Middleware, names []string) []Middleware {
	allow := make(map[string]bool, len(names))
	for _, n := range names {
		allow[n] = true
	}
	out := chain[:0:0]
	for _, mw := range chain {
		if allow[mw.Name()] {
			out = append(out, mw)
		}
	}
	return out
}

// labelType keeps metric label cardinality bounded for unknown types.
func labelType(t string) string {
	switch t {
	case domain.TypeCompletion, domain.TypeHint, domain.TypeExplanation,
		domain.TypeOptimization, domain.TypeChat, domain.TypeConfigSave,
		domain.TypeConfigGet, domain.TypeHintsReset:
		return t
	}
	return "other"
}

func fieldErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}
