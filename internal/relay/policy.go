package relay

import (
	"strconv"
	"strings"
	"time"

	"github.com/promptrelay/relay/internal/config"
)

// State is a step of the resilient relay loop.
type State int

const (
	Attempting State = iota
	BackingOff
	Succeeded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case BackingOff:
		return "backing_off"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies one upstream attempt.
type OutcomeKind int

const (
	// OutcomeSuccess is a 2xx reply with non-empty content.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRateLimited is a 429 reply.
	OutcomeRateLimited
	// OutcomeFailure covers transport errors, other statuses and empty content.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "failure"
	}
}

// Outcome is what one attempt produced. RetryAfter holds the raw header
// value of a rate-limited reply.
type Outcome struct {
	Kind       OutcomeKind
	RetryAfter string
}

// Decision is the next state and, for BackingOff, how long to wait.
type Decision struct {
	Next State
	Wait time.Duration
}

// Policy bounds the loop.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	BackoffOnError bool
}

// PolicyFrom builds a Policy from the retry config.
func PolicyFrom(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		BackoffOnError: cfg.BackoffOnError,
	}
}

// Decide is the transition function of the loop. It is pure: the result
// depends only on the outcome, the 1-based attempt number and the policy.
//
// The final attempt never backs off; whatever it produced short of success
// ends the loop as Exhausted.
func (p Policy) Decide(o Outcome, attempt int) Decision {
	if o.Kind == OutcomeSuccess {
		return Decision{Next: Succeeded}
	}
	if attempt >= p.MaxAttempts {
		return Decision{Next: Exhausted}
	}

	switch o.Kind {
	case OutcomeRateLimited:
		if wait, ok := ParseRetryAfter(o.RetryAfter); ok {
			return Decision{Next: BackingOff, Wait: wait}
		}
		return Decision{Next: BackingOff, Wait: p.linear(attempt)}
	default:
		if p.BackoffOnError {
			return Decision{Next: BackingOff, Wait: p.linear(attempt)}
		}
		return Decision{Next: Attempting}
	}
}

func (p Policy) linear(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// ParseRetryAfter reads a Retry-After header given in whole seconds.
// HTTP-date values are not accepted.
func ParseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
