package jsonrpc

import (
	"fmt"
	"net/http"

	"github.com/morezero/extension-dispatch/internal/config"
	"github.com/morezero/extension-dispatch/pkg/endpoint"
)

const envLogPrefix = "jsonrpc:env"

// NewEnvInvoker builds a JSON-RPC remote invoker whose HTTP client timeout
// comes from environment configuration (DISPATCH_HTTP_TIMEOUT).
func NewEnvInvoker(iface string, ep *endpoint.Descriptor) (*Invoker, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load config: %w", envLogPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewInvoker(InvokerParams{
		Interface: iface,
		Endpoint:  ep,
		Client:    &http.Client{Timeout: cfg.HTTPTimeout},
	}), nil
}
