/*
Package host implements the Host Controller: the trusted side that owns document access
and the panel lifecycle.

The Host opens (or reveals) the single panel session, sends it snapshots of the focused
document, dispatches the messages the panel sends back, and performs write-backs. Only
the Host mutates documents; the panel merely asks for it with an updateEditorCode message.

	h := host.New(workspace, factory, notifier, host.WithWriteDelay(5*time.Millisecond))
	defer h.Close()

	if err := h.OpenOrReveal(ctx); err != nil {
		log.Fatal(err)
	}
*/
package host
