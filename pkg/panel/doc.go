// Package panel implements the Panel Session: the isolated side of the editor panel.
//
// A Session only ever talks to the Host through its ports.PanelEndpoint. It keeps the
// latest document snapshot the Host sent, forwards user prompts to a ports.Transformer,
// records the exchange in a transcript, and on success asks the Host to write the
// returned code back. It never touches a document itself.
package panel
