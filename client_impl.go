package vmcctl

import (
	"context"

	"github.com/wagiedev/vmcctl/internal/client"
)

// clientWrapper adapts the internal client to the public interface.
// Option application is the only thing it adds; every other method is
// promoted from the embedded client.
type clientWrapper struct {
	*client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{Client: client.New()}
}

// Start connects to the host.
func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.Client.Start(ctx, applyOptions(opts))
}
