// Package webhook provides the payload types received from work-tracking service hooks.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Event is a work item change notification. Field reference names contain dots
// (System.Description), so the payload is kept as a nested map and navigated with Lookup.
type Event map[string]any

// MalformedRequestError reports an inbound payload that cannot be handled.
type MalformedRequestError struct {
	Reason string
	Err    error
}

// Error implements error.
func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed request: %s: %v", e.Reason, e.Err)
	}
	return "malformed request: " + e.Reason
}

func (e *MalformedRequestError) Unwrap() error {
	return e.Err
}

// DecodeEvent parses a raw webhook body. Numbers are kept as json.Number.
func DecodeEvent(body []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var event Event
	if err := dec.Decode(&event); err != nil {
		return nil, &MalformedRequestError{Reason: "invalid JSON payload", Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &MalformedRequestError{Reason: "invalid JSON payload", Err: errors.New("trailing data after JSON value")}
	}
	if event == nil {
		return nil, &MalformedRequestError{Reason: "payload must be a JSON object"}
	}
	return event, nil
}

// Lookup walks the nested objects along path. A missing or non-object
// intermediate level reports the same as a missing leaf.
func (e Event) Lookup(path ...string) (any, bool) {
	var current any = map[string]any(e)
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// String returns the value at path when it is a string.
func (e Event) String(path ...string) (string, bool) {
	v, ok := e.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NonEmpty reports whether path holds a value that is not blank.
func (e Event) NonEmpty(path ...string) bool {
	v, ok := e.Lookup(path...)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// EventType returns the service hook event type, e.g. workitem.updated.
func (e Event) EventType() string {
	s, _ := e.String("eventType")
	return s
}

// TicketRef identifies the work item an event refers to.
type TicketRef struct {
	OrganizationURL string
	ProjectID       string
	WorkItemID      int
}

// Ticket extracts the work item reference from the resource containers.
func (e Event) Ticket() (TicketRef, error) {
	var missing []string

	baseURL, ok := e.String("resourceContainers", "project", "baseUrl")
	if !ok || baseURL == "" {
		missing = append(missing, "resourceContainers.project.baseUrl")
	}
	projectID, ok := e.String("resourceContainers", "project", "id")
	if !ok || projectID == "" {
		missing = append(missing, "resourceContainers.project.id")
	}
	workItemID, err := e.workItemID()
	if err != nil {
		missing = append(missing, "resource.workItemId")
	}

	if len(missing) > 0 {
		return TicketRef{}, &MalformedRequestError{Reason: "missing " + strings.Join(missing, ", ")}
	}

	return TicketRef{
		OrganizationURL: baseURL,
		ProjectID:       projectID,
		WorkItemID:      workItemID,
	}, nil
}

func (e Event) workItemID() (int, error) {
	v, ok := e.Lookup("resource", "workItemId")
	if !ok {
		// workitem.created events carry the id on the resource itself.
		v, ok = e.Lookup("resource", "id")
	}
	if !ok {
		return 0, errors.New("work item id not present")
	}

	var id int
	switch raw := v.(type) {
	case json.Number:
		n, err := raw.Int64()
		if err != nil {
			return 0, err
		}
		id = int(n)
	case float64:
		id = int(raw)
	case string:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, err
		}
		id = n
	default:
		return 0, fmt.Errorf("unexpected work item id type %T", v)
	}
	if id <= 0 {
		return 0, fmt.Errorf("work item id %d is not positive", id)
	}
	return id, nil
}

// MessageEvent is the chat-style payload accepted by the message endpoint.
type MessageEvent struct {
	Message Message `json:"message"`
}

// Message holds one text in several renderings.
type Message struct {
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
}

// DecodeMessage parses a message payload and requires message.text.
func DecodeMessage(body []byte) (*MessageEvent, error) {
	var event MessageEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, &MalformedRequestError{Reason: "invalid JSON payload", Err: err}
	}
	if strings.TrimSpace(event.Message.Text) == "" {
		return nil, &MalformedRequestError{Reason: "message.text is required"}
	}
	return &event, nil
}
