/*
Package ports defines the driven ports (interfaces) of the figflow Host and Panel.

These interfaces decouple the Host Controller and the Panel Session from the concrete
editor, transport, and transformation service, so the same core runs in-process, over
HTTP, behind an MCP server, or against a Redis-backed buffer.

# Key Interfaces

  - Document: A live text buffer that accepts positional edits.
  - Editor: Exposes the currently focused Document, if any.
  - Notifier: User-visible notifications raised by the Host.
  - PanelFactory / PanelView / PanelEndpoint: The two ends of the Host <-> Panel channel.
  - Transformer: The remote code-transformation service.
  - DistributedLocker: Optional cross-process exclusion for write-back jobs.
*/
package ports
