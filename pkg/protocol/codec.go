package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const commandKey = "command"

// Marshal encodes a message as a flat JSON object tagged with its command.
func Marshal(m Message) ([]byte, error) {
	fields, err := Fields(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// Fields flattens a message into the map form used on the wire.
func Fields(m Message) (map[string]any, error) {
	fields := make(map[string]any)

	switch v := m.(type) {
	case Unknown:
		for k, val := range v.Fields {
			fields[k] = val
		}
	case Status:
		if k := v.kind(); k != StatusSuccess && k != StatusError {
			return nil, fmt.Errorf("cannot encode status of kind %q", k)
		}
		fields["text"] = v.Text
	case nil:
		return nil, fmt.Errorf("cannot encode nil message")
	default:
		if err := mapstructure.Decode(v, &fields); err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", m.Command(), err)
		}
	}

	fields[commandKey] = m.Command()
	return fields, nil
}

// Unmarshal decodes a wire message. Unrecognized or missing commands yield Unknown.
// An error is returned only for malformed JSON or a payload of the wrong shape.
func Unmarshal(data []byte) (Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return FromFields(fields)
}

// FromFields decodes a message already parsed into a map.
func FromFields(fields map[string]any) (Message, error) {
	command, _ := fields[commandKey].(string)

	var (
		m        Message
		err      error
		required []string
	)

	switch command {
	case CmdSetCode:
		var v SetCode
		required = []string{"code"}
		err = decodePayload(command, fields, &v)
		m = v
	case CmdFileSelected:
		var v FileSelected
		err = decodePayload(command, fields, &v)
		m = v
	case CmdUpdateEditorCode:
		var v UpdateEditorCode
		required = []string{"code"}
		err = decodePayload(command, fields, &v)
		m = v
	case CmdSuccess, CmdError:
		v := Status{Kind: StatusKind(command)}
		err = decodePayload(command, fields, &v)
		m = v
	default:
		rest := make(map[string]any, len(fields))
		for k, v := range fields {
			if k != commandKey {
				rest[k] = v
			}
		}
		return Unknown{Name: command, Fields: rest}, nil
	}

	if err != nil {
		return nil, err
	}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("invalid %s payload: missing %q", command, key)
		}
	}
	return m, nil
}

func decodePayload(command string, fields map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(fields); err != nil {
		return fmt.Errorf("invalid %s payload: %w", command, err)
	}
	return nil
}
