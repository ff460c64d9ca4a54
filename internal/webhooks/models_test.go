package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionAccepts(t *testing.T) {
	tests := []struct {
		name   string
		sub    *Subscription
		event  string
		accept bool
	}{
		{
			name:   "listed event",
			sub:    &Subscription{Active: true, Events: []string{"lead.created"}},
			event:  "lead.created",
			accept: true,
		},
		{
			name:   "unlisted event",
			sub:    &Subscription{Active: true, Events: []string{"lead.created"}},
			event:  "lead.updated",
			accept: false,
		},
		{
			name:   "wildcard",
			sub:    &Subscription{Active: true, Events: []string{WildcardEvent}},
			event:  "form.submitted",
			accept: true,
		},
		{
			name:   "empty events means all",
			sub:    &Subscription{Active: true},
			event:  "lead.updated",
			accept: true,
		},
		{
			name:   "inactive with listed event",
			sub:    &Subscription{Active: false, Events: []string{"lead.created"}},
			event:  "lead.created",
			accept: false,
		},
		{
			name:   "inactive with wildcard",
			sub:    &Subscription{Active: false, Events: []string{WildcardEvent}},
			event:  "lead.created",
			accept: false,
		},
		{
			name:   "nil subscription",
			sub:    nil,
			event:  "lead.created",
			accept: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.accept, tt.sub.Accepts(tt.event))
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{"https://a.test", "http://localhost:9000/hook", " https://example.com/x?y=1 "}
	for _, u := range valid {
		assert.NoError(t, ValidateURL(u), u)
	}

	invalid := []string{"", "a.test/hook", "ftp://a.test", "https://", "/relative", "http//missing-colon"}
	for _, u := range invalid {
		assert.ErrorIs(t, ValidateURL(u), ErrInvalidURL, u)
	}
}
