/*
Package figflow connects a code editor to a remote code-transformation service through an
isolated chat panel.

The Host Controller (pkg/host) owns the workspace documents and at most one panel. The
Panel Session (pkg/panel) holds a snapshot of the focused document, sends the user's
prompt (optionally with an image) to the transformation service (pkg/transform), and on
success asks the Host to write the returned code back. The Host replays it into the
document one character at a time (pkg/writeback), and a newer request always supersedes
an older one.

Host and Panel never share memory: they exchange protocol messages (pkg/protocol) over
a FIFO channel per direction.

# Usage

	app := figflow.New(figflow.WithBaseURL("http://localhost:5000"))
	defer app.Close()

	if _, err := app.OpenDocument(ctx, "main.py", "x=1"); err != nil {
		log.Fatal(err)
	}
	if err := app.OpenOrReveal(ctx); err != nil {
		log.Fatal(err)
	}

	p, _ := app.Panel()
	if _, err := p.Send(ctx, "format", nil); err != nil {
		log.Fatal(err)
	}

# Adapters

The same App is driven by the web panel (pkg/adapters/http), the MCP server
(pkg/adapters/mcp) and the terminal chat of the figflow command. Documents can live in
memory, on disk (pkg/adapters/file) or in Redis (pkg/adapters/redis).
*/
package figflow
