package vmcctl

import (
	"log/slog"
	"net"

	"github.com/wagiedev/vmcctl/internal/config"
	"github.com/wagiedev/vmcctl/internal/pipe"
)

// Transport defines the interface for communication with the host.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation talks newline-delimited JSON over a unix or
// TCP socket. Custom transports can be injected via WithTransport.
type Transport = config.Transport

// NewConnTransport wraps an established connection, for hosts reached
// through something other than a plain dial.
func NewConnTransport(log *slog.Logger, conn net.Conn) Transport {
	if log == nil {
		log = NopLogger()
	}

	return pipe.NewWithConn(log, conn)
}
