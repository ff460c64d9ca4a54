package dispatch

import "time"

// Outcome of one subscription within a dispatch
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// Result describes a single subscription's delivery attempt
type Result struct {
	SubscriptionID string
	URL            string
	DeliveryID     string
	Outcome        Outcome
	StatusCode     int // 0 when no response was received
	Signed         bool
	TimedOut       bool
	Duration       time.Duration
	Err            error
}

// Summary reports what a dispatch did. It is informational only; callers
// are not expected to act on it.
type Summary struct {
	TenantID      string
	Event         string
	LookupFailed  bool
	Subscriptions int
	Skipped       int
	Delivered     int
	Failed        int
	HTTP4xx       int
	HTTP5xx       int
	NetworkErrors int
	Timeouts      int
	Results       []Result
}

// Attempted is the number of subscriptions a request was made for
func (s Summary) Attempted() int {
	return s.Delivered + s.Failed
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeSkipped:
		s.Skipped++
		return
	case OutcomeDelivered:
		s.Delivered++
		return
	}

	s.Failed++
	switch {
	case r.StatusCode >= 500:
		s.HTTP5xx++
	case r.StatusCode >= 400:
		s.HTTP4xx++
	case r.StatusCode == 0:
		s.NetworkErrors++
	}
	if r.TimedOut {
		s.Timeouts++
	}
}
