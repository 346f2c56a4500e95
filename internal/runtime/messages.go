package runtime

import "fmt"

// Kind enumerates console stream levels.
type Kind string

const (
	KindLog   Kind = "log"
	KindWarn  Kind = "warn"
	KindError Kind = "error"
	KindInfo  Kind = "info"
)

// validKinds is the closed set accepted at the decode boundary.
var validKinds = map[Kind]bool{
	KindLog:   true,
	KindWarn:  true,
	KindError: true,
	KindInfo:  true,
}

// Message is the tagged union crossing the realm boundary. The realm posts
// messages; the host never sends anything back after the program is injected.
type Message interface {
	message()
}

// LogMessage carries one console call with its serialized arguments.
type LogMessage struct {
	Kind Kind
	Args []string
}

// ErrorMessage marks the run as failed.
type ErrorMessage struct {
	Err string
}

// DoneMessage marks successful completion.
type DoneMessage struct{}

// StatusMessage reports a lifecycle status (canvas mode only).
type StatusMessage struct {
	Status string
}

func (LogMessage) message()    {}
func (ErrorMessage) message()  {}
func (DoneMessage) message()   {}
func (StatusMessage) message() {}

// Encode converts a message to its wire shape for transport to clients.
func Encode(m Message) map[string]any {
	switch msg := m.(type) {
	case LogMessage:
		return map[string]any{"type": string(msg.Kind), "args": msg.Args}
	case ErrorMessage:
		return map[string]any{"error": msg.Err}
	case DoneMessage:
		return map[string]any{"done": true}
	case StatusMessage:
		return map[string]any{"status": msg.Status}
	default:
		return nil
	}
}

// Decode validates a wire-shaped payload into a typed message. Unknown or
// malformed shapes are rejected rather than coerced.
func Decode(raw map[string]any) (Message, error) {
	if errVal, ok := raw["error"]; ok {
		s, ok := errVal.(string)
		if !ok {
			return nil, fmt.Errorf("error message: non-string error field")
		}
		return ErrorMessage{Err: s}, nil
	}

	if done, ok := raw["done"]; ok {
		if b, ok := done.(bool); !ok || !b {
			return nil, fmt.Errorf("done message: done must be true")
		}
		return DoneMessage{}, nil
	}

	if status, ok := raw["status"]; ok {
		s, ok := status.(string)
		if !ok {
			return nil, fmt.Errorf("status message: non-string status field")
		}
		return StatusMessage{Status: s}, nil
	}

	if typ, ok := raw["type"]; ok {
		kind, ok := typ.(string)
		if !ok || !validKinds[Kind(kind)] {
			return nil, fmt.Errorf("log message: unknown kind %v", typ)
		}
		args, err := decodeArgs(raw["args"])
		if err != nil {
			return nil, err
		}
		return LogMessage{Kind: Kind(kind), Args: args}, nil
	}

	return nil, fmt.Errorf("unrecognized message shape")
}

func decodeArgs(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		args := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("log message: non-string arg %v", item)
			}
			args = append(args, s)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("log message: args must be a string list")
	}
}
