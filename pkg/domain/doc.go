/*
Package domain contains the core value types shared by the Host Controller and the Panel Session.

The package is kept pure and free of I/O, following Hexagonal Architecture principles.
Document access, transport, and persistence live behind the interfaces in pkg/ports.

# Key Entities

  - Snapshot: A point-in-time copy of the focused document's text.
  - TransformationRequest: What the Panel sends to the remote service (prompt, code, optional image).
  - TransformationResult: The code returned by the remote service.
  - Range: A half-open byte range inside a document, used by edit operations.
*/
package domain
