package protocol

// Command tags used on the wire.
const (
	CmdSetCode          = "setCode"
	CmdFileSelected     = "fileSelected"
	CmdUpdateEditorCode = "updateEditorCode"
	CmdSuccess          = "success"
	CmdError            = "error"
)

// Message is a protocol message. The set of implementations is closed.
type Message interface {
	// Command returns the wire discriminator.
	Command() string
	isMessage()
}

// SetCode carries the current document snapshot from the Host to the Panel.
type SetCode struct {
	Code string `mapstructure:"code"`
}

// FileSelected tells the Host that the user attached a file in the Panel.
// Data is the file encoded as a data URL.
type FileSelected struct {
	Data string `mapstructure:"data"`
}

// UpdateEditorCode asks the Host to write Code back into the active document.
type UpdateEditorCode struct {
	Code string `mapstructure:"code"`
}

// StatusKind distinguishes informational status messages.
type StatusKind string

const (
	StatusSuccess StatusKind = CmdSuccess
	StatusError   StatusKind = CmdError
)

// Status is an informational message from the Panel ("success" or "error").
// An empty Kind means success.
type Status struct {
	Kind StatusKind `mapstructure:"-"`
	Text string     `mapstructure:"text"`
}

// Unknown is the default arm: any command the decoder does not recognize.
type Unknown struct {
	Name   string
	Fields map[string]any
}

func (SetCode) Command() string          { return CmdSetCode }
func (FileSelected) Command() string     { return CmdFileSelected }
func (UpdateEditorCode) Command() string { return CmdUpdateEditorCode }
func (s Status) Command() string         { return string(s.kind()) }
func (u Unknown) Command() string        { return u.Name }

func (SetCode) isMessage()          {}
func (FileSelected) isMessage()     {}
func (UpdateEditorCode) isMessage() {}
func (Status) isMessage()           {}
func (Unknown) isMessage()          {}

// kind treats the zero Status as a success.
func (s Status) kind() StatusKind {
	if s.Kind == "" {
		return StatusSuccess
	}
	return s.Kind
}

// Success builds a success status message.
func Success(text string) Status {
	return Status{Kind: StatusSuccess, Text: text}
}

// Failure builds an error status message.
func Failure(text string) Status {
	return Status{Kind: StatusError, Text: text}
}
