package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nats-io/nuid"

	"github.com/morezero/extension-dispatch/pkg/comms"
	"github.com/morezero/extension-dispatch/pkg/endpoint"
	"github.com/morezero/extension-dispatch/pkg/rpc"
)

const invokerLogPrefix = "jsonrpc:invoker"

const defaultHTTPTimeout = 30 * time.Second

// InvokerParams holds parameters for NewInvoker.
type InvokerParams struct {
	Interface string
	Endpoint  *endpoint.Descriptor
	// Client overrides the HTTP client (nil uses a default with a 30s
	// timeout).
	Client *http.Client
}

// Invoker is an rpc.Invoker that posts invocations to a JSON-RPC 2.0
// endpoint derived from its endpoint descriptor.
type Invoker struct {
	iface  string
	ep     *endpoint.Descriptor
	url    string
	client *http.Client
	closed atomic.Bool
}

// NewInvoker creates a JSON-RPC remote invoker. The request URL is built
// from the endpoint descriptor: http://host:port/path.
func NewInvoker(params InvokerParams) *Invoker {
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	url := ""
	if params.Endpoint != nil {
		scheme := params.Endpoint.Scheme()
		if scheme != "http" && scheme != "https" {
			scheme = "http"
		}
		url = fmt.Sprintf("%s://%s/%s", scheme, params.Endpoint.Address(), params.Endpoint.Path())
	}
	return &Invoker{
		iface:  params.Interface,
		ep:     params.Endpoint,
		url:    url,
		client: client,
	}
}

// Interface returns the capability interface name.
func (i *Invoker) Interface() string { return i.iface }

// Endpoint returns the invoker's endpoint descriptor.
func (i *Invoker) Endpoint() *endpoint.Descriptor { return i.ep }

// URL returns the JSON-RPC endpoint URL.
func (i *Invoker) URL() string { return i.url }

// IsAvailable reports whether the invoker is open.
func (i *Invoker) IsAvailable() bool { return !i.closed.Load() }

// Invoke posts the invocation and maps the JSON-RPC response to a Result.
func (i *Invoker) Invoke(ctx context.Context, inv *rpc.Invocation) (*rpc.Result, error) {
	if i.closed.Load() {
		return nil, &rpc.InvocationError{Code: rpc.CodeInvokerClosed, Message: fmt.Sprintf("%s - %s invoked after destroy", invokerLogPrefix, i.iface)}
	}
	if err := rpc.ValidateArity(inv); err != nil {
		return nil, err
	}

	inv.SetInvoker(i)

	params, err := json.Marshal(&comms.InvocationRequest{
		Service:        inv.ServiceName(),
		TargetService:  inv.TargetServiceUniqueName(),
		Method:         inv.MethodName(),
		ParameterTypes: inv.ParameterTypes(),
		Arguments:      inv.Arguments(),
		Attachments:    inv.Attachments(),
	})
	if err != nil {
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("failed to encode %s.%s request", inv.ServiceName(), inv.MethodName()), err, false)), nil
	}

	id, _ := json.Marshal(nuid.Next())
	body, err := json.Marshal(&request{JSONRPC: Version, ID: id, Method: inv.MethodName(), Params: params})
	if err != nil {
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("failed to encode %s.%s request", inv.ServiceName(), inv.MethodName()), err, false)), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(body))
	if err != nil {
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("failed to build request to %s", i.url), err, false)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := i.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return rpc.FaultResult(rpc.TimeoutFault(fmt.Sprintf("%s.%s timed out", inv.ServiceName(), inv.MethodName()), err)), nil
		}
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("request to %s failed", i.url), err, true)), nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, httpResp.Body)
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		retryable := httpResp.StatusCode >= 500
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("%s returned status %d", i.url, httpResp.StatusCode), nil, retryable)), nil
	}

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("invalid response from %s", i.url), err, false)), nil
	}

	if resp.Error != nil {
		return rpc.FaultResult(faultFromResponseError(resp.Error)), nil
	}

	var res result
	if resp.Result != nil {
		raw, err := json.Marshal(resp.Result)
		if err == nil {
			err = json.Unmarshal(raw, &res)
		}
		if err != nil {
			return rpc.FaultResult(rpc.TransportFault(fmt.Sprintf("invalid result payload from %s", i.url), err, false)), nil
		}
	}

	inv.MergeAttachments(res.Attachments)
	out := rpc.ValueResult(res.Value)
	for k, v := range res.Attachments {
		out.SetAttachment(k, v)
	}
	return out, nil
}

// Destroy marks the invoker closed. Idempotent.
func (i *Invoker) Destroy() {
	i.closed.Store(true)
}

func faultFromResponseError(respErr *responseError) *rpc.Fault {
	if respErr.Data != nil {
		kind := rpc.FaultKind(respErr.Data.Kind)
		switch kind {
		case rpc.FaultBusiness, rpc.FaultTransport, rpc.FaultTimeout:
		default:
			kind = rpc.FaultTransport
		}
		return &rpc.Fault{
			Kind:      kind,
			Code:      respErr.Data.Code,
			Message:   respErr.Data.Message,
			Retryable: respErr.Data.Retryable,
		}
	}
	return rpc.TransportFault(fmt.Sprintf("json-rpc error %d: %s", respErr.Code, respErr.Message), nil, false)
}
