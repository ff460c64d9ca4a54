package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formulando/relay/internal/dispatch"
)

func TestDispatchArgsKind(t *testing.T) {
	assert.Equal(t, "webhook_dispatch", DispatchArgs{}.Kind())
}

func TestDispatchArgsInsertOpts(t *testing.T) {
	opts := DispatchArgs{}.InsertOpts()
	assert.Equal(t, QueueWebhooks, opts.Queue)
	assert.Equal(t, 1, opts.MaxAttempts)
}

func TestDispatchArgsJSON(t *testing.T) {
	args := DispatchArgs{
		TenantID: "T1",
		Event: dispatch.NewEvent("lead.created", map[string]any{
			"lead": map[string]any{"id": "L1"},
		}),
	}

	data, err := json.Marshal(args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenant_id":"T1","event":{"event":"lead.created","lead":{"id":"L1"}}}`, string(data))

	var decoded DispatchArgs
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "T1", decoded.TenantID)
	assert.Equal(t, "lead.created", decoded.Event.Name)
	assert.Equal(t, map[string]any{"id": "L1"}, decoded.Event.Fields["lead"])
}
