// Package jsonrpc binds the invocation contract to JSON-RPC 2.0 over HTTP:
// a handler serving a local invoker and a client-side remote invoker. It
// reuses the comms envelope shapes for params and fault detail, so the two
// transports stay interchangeable behind the resolver.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/morezero/extension-dispatch/pkg/comms"
	"github.com/morezero/extension-dispatch/pkg/rpc"
)

const handlerLogPrefix = "jsonrpc:handler"

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// JSON-RPC error codes. Fault detail rides in the error data field.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeInternalError  = -32603
	codeFault          = -32000
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Data    *comms.ErrorDetail `json:"data,omitempty"`
}

type result struct {
	Value       any            `json:"value"`
	Attachments map[string]any `json:"attachments,omitempty"`
}

// Handler serves the target invoker as a JSON-RPC 2.0 endpoint. The RPC
// method name is the invoked method; params carry the invocation request
// envelope.
func Handler(target rpc.Invoker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResponse(w, &response{JSONRPC: Version, Error: &responseError{Code: codeParseError, Message: "parse error"}})
			return
		}
		if req.JSONRPC != Version || req.Method == "" {
			writeResponse(w, &response{JSONRPC: Version, ID: req.ID, Error: &responseError{Code: codeInvalidRequest, Message: "invalid request"}})
			return
		}

		var params comms.InvocationRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				writeResponse(w, &response{JSONRPC: Version, ID: req.ID, Error: &responseError{Code: codeInvalidRequest, Message: "invalid params"}})
				return
			}
		}

		inv := rpc.NewInvocation(target.Interface(), req.Method, params.ParameterTypes, params.Arguments)
		if params.TargetService != "" {
			inv.SetTargetServiceUniqueName(params.TargetService)
		}
		inv.MergeAttachments(params.Attachments)

		resp := &response{JSONRPC: Version, ID: req.ID}
		res, err := target.Invoke(r.Context(), inv)
		switch {
		case err != nil:
			detail := &comms.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()}
			var invErr *rpc.InvocationError
			if errors.As(err, &invErr) {
				detail.Code = invErr.Code
			}
			resp.Error = &responseError{Code: codeInternalError, Message: err.Error(), Data: detail}
		case res.HasFault():
			fault := res.Fault()
			resp.Error = &responseError{
				Code:    codeFault,
				Message: fault.Message,
				Data: &comms.ErrorDetail{
					Kind:      string(fault.Kind),
					Code:      fault.Code,
					Message:   fault.Message,
					Retryable: fault.Retryable,
				},
			}
		default:
			resp.Result = &result{Value: res.Value(), Attachments: res.Attachments()}
		}
		writeResponse(w, resp)
	})
}

func writeResponse(w http.ResponseWriter, resp *response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to write response: %v", handlerLogPrefix, err))
	}
}
