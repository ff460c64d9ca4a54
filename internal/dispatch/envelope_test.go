package dispatch

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeDispatcherFieldsWin(t *testing.T) {
	ev := NewEvent("lead.created", map[string]any{
		"id":         "caller-id",
		"created_at": "1999-01-01T00:00:00Z",
		"event":      "spoofed",
		"lead":       map[string]any{"id": "L1"},
	})
	at := time.Date(2026, 2, 23, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	env := NewEnvelope(ev, "delivery-1", at)

	assert.Equal(t, "delivery-1", env.ID())
	assert.Equal(t, "2026-02-23T15:00:00.000Z", env["created_at"])
	assert.Equal(t, "lead.created", env["event"])
	assert.Equal(t, map[string]any{"id": "L1"}, env["lead"])
}

func TestNewEnvelopeDropsCallerCreatedAt(t *testing.T) {
	ev := NewEvent("lead.created", map[string]any{
		"createdAt": "1999-01-01T00:00:00Z",
		"lead":      map[string]any{"createdAt": "kept"},
	})

	env := NewEnvelope(ev, "delivery-1", time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC))

	assert.NotContains(t, env, "createdAt")
	assert.Equal(t, "2026-02-23T12:00:00.000Z", env["created_at"])
	assert.Equal(t, map[string]any{"createdAt": "kept"}, env["lead"], "nested fields are opaque")
	assert.Contains(t, ev.Fields, "createdAt", "event is not mutated")
}

func TestNewEnvelopeDoesNotMutateEvent(t *testing.T) {
	fields := map[string]any{"id": "caller-id"}
	ev := Event{Name: "lead.created", Fields: fields}

	NewEnvelope(ev, "delivery-1", time.Now())

	assert.Equal(t, map[string]any{"id": "caller-id"}, fields)
}

func TestEnvelopeEncode(t *testing.T) {
	env := NewEnvelope(
		NewEvent("lead.created", map[string]any{"note": "<b>Tom & Jerry</b>"}),
		"delivery-1",
		time.Date(2026, 2, 23, 12, 0, 0, 123_000_000, time.UTC),
	)

	body, err := env.Encode()
	require.NoError(t, err)

	assert.Equal(t,
		`{"created_at":"2026-02-23T12:00:00.123Z","event":"lead.created","id":"delivery-1","note":"<b>Tom & Jerry</b>"}`,
		string(body),
	)
	assert.False(t, strings.HasSuffix(string(body), "\n"))

	again, err := env.Encode()
	require.NoError(t, err)
	assert.Equal(t, body, again)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "delivery-1", decoded["id"])
}
