package dispatch

import (
	"bytes"
	"encoding/json"
	"maps"
	"time"
)

// Envelope keys controlled by the dispatcher
const (
	keyID        = "id"
	keyCreatedAt = "created_at"
	keyEvent     = "event"

	// camelCase spelling of created_at; never passed through from callers
	keyCreatedAtAlias = "createdAt"
)

// TimestampLayout is the created_at format (ISO 8601, UTC, milliseconds)
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Envelope is the JSON object actually sent to a subscriber
type Envelope map[string]any

// NewEnvelope merges the event fields first and then writes event, id and
// created_at, so those keys are always dispatcher-controlled. A caller
// createdAt field is dropped.
func NewEnvelope(ev Event, id string, createdAt time.Time) Envelope {
	env := make(Envelope, len(ev.Fields)+3)
	maps.Copy(env, ev.Fields)
	delete(env, keyCreatedAtAlias)
	env[keyEvent] = ev.Name
	env[keyID] = id
	env[keyCreatedAt] = createdAt.UTC().Format(TimestampLayout)
	return env
}

// ID returns the delivery id
func (e Envelope) ID() string {
	id, _ := e[keyID].(string)
	return id
}

// Encode serializes the envelope. Object keys are emitted sorted and HTML
// characters are left unescaped; the result is both the request body and
// the signing input.
func (e Envelope) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(e)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
