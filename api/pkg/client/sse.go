package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

var ErrInvalidEvent = errors.New("invalid test run event")

const doneSentinel = "[DONE]"

// EventReader decodes server-sent event frames into test run events. Each
// frame is a set of "event:" and "data:" lines terminated by a blank line;
// multiple data lines are joined with newlines. Comment lines starting with
// ':' and the id/retry fields are ignored.
type EventReader struct {
	reader *bufio.Reader
}

func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{reader: bufio.NewReader(r)}
}

func (r *EventReader) Next() (*types.TestRunEvent, error) {
	var (
		eventName string
		data      bytes.Buffer
		hasData   bool
	)

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading stream: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				return decodeEvent(eventName, data.Bytes())
			}
			if eof {
				return nil, io.EOF
			}
			eventName = ""
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "":
			// comment / keep-alive
		case "event":
			eventName = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id", "retry":
		default:
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidEvent, field)
		}

		if eof {
			if hasData {
				return decodeEvent(eventName, data.Bytes())
			}
			return nil, io.EOF
		}
	}
}

func decodeEvent(eventName string, data []byte) (*types.TestRunEvent, error) {
	if string(data) == doneSentinel {
		return nil, io.EOF
	}

	var event types.TestRunEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.Type == "" {
		event.Type = types.TestRunEventType(eventName)
	}

	switch event.Type {
	case types.TestRunEventStart, types.TestRunEventComplete, types.TestRunEventError:
	case types.TestRunEventStep:
		if event.Step == nil {
			return nil, fmt.Errorf("%w: step event without step", ErrInvalidEvent)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}

	return &event, nil
}

// WriteEvent encodes an event as one server-sent event frame.
func WriteEvent(w io.Writer, event *types.TestRunEvent) error {
	bts, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, bts)
	return err
}
