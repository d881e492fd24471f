// Package commsutil provides COMMS connection helpers and utilities.
package commsutil

import (
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

// Connection defaults, used when the corresponding ConnectParams field is
// zero.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReconnectWait  = 2 * time.Second
	DefaultMaxReconnects  = 60
)

// ConnectParams holds parameters for Connect.
type ConnectParams struct {
	URL  string
	Name string

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
	// ReconnectWait is the delay between reconnect attempts.
	ReconnectWait time.Duration
	// MaxReconnects caps reconnect attempts before the connection is
	// abandoned.
	MaxReconnects int
}

// Connect creates a COMMS connection with reconnect handling and lifecycle
// logging.
func Connect(params ConnectParams) (*comms.Conn, error) {
	if params.ConnectTimeout <= 0 {
		params.ConnectTimeout = DefaultConnectTimeout
	}
	if params.ReconnectWait <= 0 {
		params.ReconnectWait = DefaultReconnectWait
	}
	if params.MaxReconnects == 0 {
		params.MaxReconnects = DefaultMaxReconnects
	}

	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, params.URL, params.Name))

	nc, err := comms.Connect(params.URL,
		comms.Name(params.Name),
		comms.Timeout(params.ConnectTimeout),
		comms.ReconnectWait(params.ReconnectWait),
		comms.MaxReconnects(params.MaxReconnects),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", logPrefix, err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
		comms.ClosedHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS connection closed", logPrefix))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}
