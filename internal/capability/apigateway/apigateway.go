// Package apigateway is the reference capability handler: it consumes
// Alexa.ApiGateway directives that repoint the client at a different service
// gateway. It exists both as a real feature and as the canonical example of
// implementing the dispatch contract.
package apigateway

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"

	"github.com/calyptra/voxwire/internal/dispatch"
	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

const (
	namespace      = "Alexa.ApiGateway"
	nameSetGateway = "SetGateway"
)

// Observer is notified when the active gateway changes.
type Observer interface {
	OnGatewayChanged(gateway string)
}

// ApiGateway holds the active gateway URL and updates it on SetGateway
// directives. The value is not persisted; it lives for the session.
type ApiGateway struct {
	*dispatch.Agent
	logger *slog.Logger

	mu        sync.Mutex
	gateway   string
	observers []Observer
}

type setGatewayPayload struct {
	Gateway string `json:"gateway"`
}

// New creates the capability with its initial gateway.
func New(defaultGateway string, reporter dispatch.ExceptionReporter) *ApiGateway {
	g := &ApiGateway{
		logger:  log.WithComponent("apigateway"),
		gateway: defaultGateway,
	}
	g.Agent = dispatch.NewAgent(namespace, g, reporter)
	return g
}

// Configuration declares the directives this handler accepts.
func (g *ApiGateway) Configuration() dispatch.HandlerConfiguration {
	return dispatch.HandlerConfiguration{
		{Namespace: namespace, Name: nameSetGateway}: dispatch.PolicyNeitherNonBlocking,
	}
}

// PreHandleDirective has nothing to prepare for SetGateway.
func (g *ApiGateway) PreHandleDirective(info *dispatch.DirectiveInfo) {}

// HandleDirective validates and executes the directive. The same helper
// serves the immediate path and the dialog-ordered path; the two must never
// diverge.
func (g *ApiGateway) HandleDirective(info *dispatch.DirectiveInfo) {
	g.executeSetGateway(info)
}

// CancelDirective drops the directive from tracking without a terminal
// result.
func (g *ApiGateway) CancelDirective(info *dispatch.DirectiveInfo) {
	g.RemoveDirective(info.Directive.Header().MessageID)
}

// Gateway returns the active gateway URL.
func (g *ApiGateway) Gateway() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway
}

// AddObserver registers an observer for gateway changes.
func (g *ApiGateway) AddObserver(o Observer) {
	if o == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// executeSetGateway is the shared validation+execution helper behind every
// dispatch path.
func (g *ApiGateway) executeSetGateway(info *dispatch.DirectiveInfo) {
	header := info.Directive.Header()
	defer g.RemoveDirective(header.MessageID)

	if header.Name != nameSetGateway {
		g.FailWithException(info, message.ExceptionUnsupportedOperation,
			"directive name not recognized: "+header.Name)
		return
	}

	var payload setGatewayPayload
	if err := json.Unmarshal([]byte(info.Directive.Payload()), &payload); err != nil {
		g.FailWithException(info, message.ExceptionUnexpectedInformation,
			"payload is not valid JSON")
		return
	}
	if payload.Gateway == "" {
		g.FailWithException(info, message.ExceptionUnexpectedInformation,
			"payload missing gateway")
		return
	}
	if _, err := url.ParseRequestURI(payload.Gateway); err != nil {
		g.FailWithException(info, message.ExceptionUnexpectedInformation,
			"gateway is not a valid URL")
		return
	}

	g.mu.Lock()
	g.gateway = payload.Gateway
	observers := make([]Observer, len(g.observers))
	copy(observers, g.observers)
	g.mu.Unlock()

	g.logger.Info("gateway updated", "gateway", payload.Gateway, "message_id", header.MessageID)
	for _, o := range observers {
		o.OnGatewayChanged(payload.Gateway)
	}
	info.Complete()
}
