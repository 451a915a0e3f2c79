/*
Package protocol defines the messages exchanged between the Host Controller and the Panel Session.

Every message on the wire is a flat JSON object with a "command" discriminator:

	{"command": "setCode", "code": "x = 1"}

In Go the set of known commands is a closed variant: Message is implemented only by the
types in this package, and anything the decoder does not recognize becomes an Unknown
value instead of an error. Dispatchers switch on the concrete type and keep a default arm.

	switch m := msg.(type) {
	case protocol.UpdateEditorCode:
		// write back m.Code
	case protocol.Unknown:
		// log and ignore
	}
*/
package protocol
