package ports

import (
	"context"

	"github.com/aretw0/figflow/pkg/protocol"
)

// PanelView is the Host's handle on an open panel.
// Messages posted through it are delivered to the Panel in send order.
type PanelView interface {
	// Post sends a message to the Panel.
	Post(ctx context.Context, msg protocol.Message) error

	// Messages yields messages sent by the Panel, in send order.
	// The channel is never closed; select on Done to stop reading.
	Messages() <-chan protocol.Message

	// Reveal brings the panel to the foreground.
	Reveal(ctx context.Context) error

	// Done is closed when the panel has been disposed, by either side.
	Done() <-chan struct{}

	// Dispose closes the panel from the Host side.
	Dispose() error
}

// PanelEndpoint is the Panel's end of the channel.
type PanelEndpoint interface {
	// Post sends a message to the Host.
	Post(ctx context.Context, msg protocol.Message) error

	// Messages yields messages sent by the Host, in send order.
	// The channel is never closed; select on Done to stop reading.
	Messages() <-chan protocol.Message

	// Reveals signals each time the Host brings the panel to the foreground.
	// Consecutive reveals may be coalesced.
	Reveals() <-chan struct{}

	// Done is closed when the panel has been disposed.
	Done() <-chan struct{}

	// Close disposes the panel from the Panel side (the user closed it).
	Close() error
}

// PanelFactory creates panels on behalf of the Host.
type PanelFactory interface {
	Open(ctx context.Context) (PanelView, error)
}
