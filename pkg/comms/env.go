package comms

import (
	"fmt"
	"log/slog"
	"os"

	natsio "github.com/nats-io/nats.go"

	"github.com/morezero/extension-dispatch/internal/config"
	"github.com/morezero/extension-dispatch/pkg/commsutil"
	"github.com/morezero/extension-dispatch/pkg/endpoint"
	"github.com/morezero/extension-dispatch/pkg/rpc"
)

const envLogPrefix = "comms:env"

// ConnectFromEnv connects to COMMS using environment configuration
// (COMMS_URL, SERVICE_NAME, COMMS_CONNECT_TIMEOUT). The caller owns the
// returned connection.
func ConnectFromEnv() (*natsio.Conn, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load config: %w", envLogPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return commsutil.Connect(commsutil.ConnectParams{
		URL:            cfg.COMMSURL,
		Name:           cfg.COMMSName,
		ConnectTimeout: cfg.ConnectTimeout,
	})
}

// NewEnvInvoker builds a remote invoker on nc with subject prefix and
// request timeout taken from environment configuration.
func NewEnvInvoker(nc *natsio.Conn, iface string, ep *endpoint.Descriptor) (*Invoker, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load config: %w", envLogPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewInvoker(InvokerParams{
		Conn:           nc,
		Interface:      iface,
		Endpoint:       ep,
		SubjectPrefix:  cfg.SubjectPrefix,
		RequestTimeout: cfg.RequestTimeout,
	}), nil
}

// ServeFromEnv serves target on nc with subject prefix and handle timeout
// taken from environment configuration. As the serving entrypoint it also
// installs the default structured logger at the configured LOG_LEVEL.
func ServeFromEnv(nc *natsio.Conn, target rpc.Invoker) (*Listener, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load config: %w", envLogPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	return Serve(ListenerParams{
		Conn:          nc,
		Target:        target,
		SubjectPrefix: cfg.SubjectPrefix,
		HandleTimeout: cfg.RequestTimeout,
	})
}
