package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// Event is a domain event to deliver, e.g. "lead.created" with a "lead"
// field. Fields are opaque to the dispatcher.
type Event struct {
	Name   string
	Fields map[string]any
}

// NewEvent builds an event; fields is copied
func NewEvent(name string, fields map[string]any) Event {
	return Event{Name: name, Fields: maps.Clone(fields)}
}

// Validate reports whether the event can be dispatched
func (e Event) Validate() error {
	if e.Name == "" {
		return errors.New("event name is required")
	}
	return nil
}

// MarshalJSON encodes the event flat: {"event": name, ...fields}
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+1)
	maps.Copy(flat, e.Fields)
	flat[keyEvent] = e.Name
	return json.Marshal(flat)
}

// UnmarshalJSON decodes the flat form. Numbers are kept as json.Number so
// re-encoding reproduces them exactly.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return err
	}
	if flat == nil {
		return errors.New("event must be a JSON object")
	}

	name, ok := flat[keyEvent].(string)
	if !ok {
		return fmt.Errorf("event field %q must be a string", keyEvent)
	}
	delete(flat, keyEvent)

	e.Name = name
	e.Fields = flat
	return nil
}
