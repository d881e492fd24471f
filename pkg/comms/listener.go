package comms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	natsio "github.com/nats-io/nats.go"

	"github.com/morezero/extension-dispatch/pkg/commsutil"
	"github.com/morezero/extension-dispatch/pkg/events"
	"github.com/morezero/extension-dispatch/pkg/rpc"
)

const listenerLogPrefix = "comms:listener"

// ListenerParams holds parameters for Serve.
type ListenerParams struct {
	Conn   *natsio.Conn
	Target rpc.Invoker
	// SubjectPrefix overrides the default "rpc" subject prefix.
	SubjectPrefix string
	// QueueGroup enables load-balanced subscription when non-empty.
	QueueGroup string
	// HandleTimeout bounds each served invocation.
	HandleTimeout time.Duration
	// Publisher receives an InvocationEvent per served call. Nil means no
	// events.
	Publisher events.Publisher
}

// Listener serves a local invoker on a COMMS subject: it decodes request
// envelopes into invocations, runs the target, and replies with the outcome
// envelope.
type Listener struct {
	sub       *natsio.Subscription
	target    rpc.Invoker
	subject   string
	timeout   time.Duration
	publisher events.Publisher
}

// Serve subscribes the target invoker on its service subject and starts
// handling requests.
func Serve(params ListenerParams) (*Listener, error) {
	if params.Conn == nil || params.Target == nil {
		return nil, fmt.Errorf("%s - connection and target are required", listenerLogPrefix)
	}

	timeout := params.HandleTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	l := &Listener{
		target:    params.Target,
		subject:   commsutil.BuildServiceSubject(params.SubjectPrefix, params.Target.Interface()),
		timeout:   timeout,
		publisher: pub,
	}

	var err error
	if params.QueueGroup != "" {
		l.sub, err = params.Conn.QueueSubscribe(l.subject, params.QueueGroup, l.handle)
	} else {
		l.sub, err = params.Conn.Subscribe(l.subject, l.handle)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe on %s: %w", listenerLogPrefix, l.subject, err)
	}

	slog.Info(fmt.Sprintf("%s - Serving %s on %s", listenerLogPrefix, params.Target.Interface(), l.subject))
	return l, nil
}

// Subject returns the subject the listener is subscribed on.
func (l *Listener) Subject() string { return l.subject }

// Close drains the subscription.
func (l *Listener) Close() error {
	if l.sub == nil {
		return nil
	}
	return l.sub.Drain()
}

func (l *Listener) handle(msg *natsio.Msg) {
	started := time.Now()

	var req InvocationRequest
	if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
		slog.Warn(fmt.Sprintf("%s - undecodable request on %s: %v", listenerLogPrefix, l.subject, err))
		l.respond(msg, &InvocationResponse{
			Ok:    false,
			Error: &ErrorDetail{Kind: string(rpc.FaultTransport), Code: "TRANSPORT_FAULT", Message: "undecodable request envelope", Retryable: false},
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	inv := rpc.NewInvocation(l.target.Interface(), req.Method, req.ParameterTypes, req.Arguments)
	if req.TargetService != "" {
		inv.SetTargetServiceUniqueName(req.TargetService)
	}
	inv.MergeAttachments(req.Attachments)

	resp := &InvocationResponse{ID: req.ID}
	result, err := l.target.Invoke(ctx, inv)
	switch {
	case err != nil:
		detail := &ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error(), Retryable: false}
		var invErr *rpc.InvocationError
		if errors.As(err, &invErr) {
			detail.Code = invErr.Code
		}
		resp.Error = detail
	case result.HasFault():
		fault := result.Fault()
		resp.Error = &ErrorDetail{
			Kind:      string(fault.Kind),
			Code:      fault.Code,
			Message:   fault.Message,
			Retryable: fault.Retryable,
		}
	default:
		resp.Ok = true
		resp.Value = result.Value()
		resp.Attachments = result.Attachments()
	}

	l.respond(msg, resp)
	l.publishEvent(ctx, &req, resp, time.Since(started))
}

func (l *Listener) respond(msg *natsio.Msg, resp *InvocationResponse) {
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response on %s: %v", listenerLogPrefix, l.subject, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to respond on %s: %v", listenerLogPrefix, l.subject, err))
	}
}

func (l *Listener) publishEvent(ctx context.Context, req *InvocationRequest, resp *InvocationResponse, elapsed time.Duration) {
	event := &events.InvocationEvent{
		Service:    l.target.Interface(),
		Method:     req.Method,
		Subject:    l.subject,
		Ok:         resp.Ok,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if resp.Error != nil {
		event.FaultKind = resp.Error.Kind
		event.FaultCode = resp.Error.Code
	}
	if err := l.publisher.PublishInvoked(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish invocation event: %v", listenerLogPrefix, err))
	}
}
