// Package work defines the work item model: a validated, serializable task
// descriptor with a server-tracked lifecycle status.
package work

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/bucketsio/workflow/internal/logger"
)

// Numeric field bounds and defaults
const (
	// MinTimeout is the minimum execution timeout in seconds
	MinTimeout = 1
	// MaxTimeout is the maximum execution timeout in seconds (72 hours)
	MaxTimeout = 259200
	// DefaultTimeout is the default execution timeout in seconds
	DefaultTimeout = 3600

	// MaxRetries is the maximum number of re-queue attempts after a failure
	MaxRetries = 5
	// DefaultRetries is the default number of re-queue attempts
	DefaultRetries = 2

	// MinPriority is the lowest scheduling priority
	MinPriority = 1
	// MaxPriority is the highest scheduling priority
	MaxPriority = 5
	// DefaultPriority is the default scheduling priority
	DefaultPriority = 3

	// MaxResultsBytes is the serialized size bound above which the results
	// payload is dropped; large data belongs in products or plots
	MaxResultsBytes = 4 << 20
)

var pipelineRegex = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Strategy selects the site-validation policy
type Strategy string

// Strategy constants
const (
	// StrategyPermissive accepts any site
	StrategyPermissive Strategy = "permissive"
	// StrategyStrict requires the site to be in the workspace allowlist
	StrategyStrict Strategy = "strict"
)

// Config holds the lifecycle policy knobs carried inside a work item
type Config struct {
	Strategy Strategy `json:"strategy"`
}

// Notify holds the notification targets consulted on terminal states.
// The values are opaque channel identifiers passed through to the
// notification dispatch; the model does not interpret them.
type Notify struct {
	OnFailure []string `json:"on_failure,omitempty"`
	OnSuccess []string `json:"on_success,omitempty"`
}

// Mode identifies the execution mode of a work item
type Mode int

// Execution modes
const (
	// ModeNoop is a work item with neither function nor command, used for
	// pure orchestration and testing
	ModeNoop Mode = iota
	// ModeFunction runs a named function with keyword parameters
	ModeFunction
	// ModeCommand runs an argv-style command
	ModeCommand
)

// Work is a single unit of deferred execution submitted to and claimed from
// the shared queue.
//
// Runtime-only state (access token, HTTP handle, workspace path) never lives
// on this struct; it belongs to the client, so it cannot leak through
// Payload or the JSON encoding.
type Work struct {
	Pipeline   string                 `json:"pipeline"`
	Site       string                 `json:"site"`
	User       string                 `json:"user"`
	Function   string                 `json:"function,omitempty"`
	Command    []string               `json:"command,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Results    map[string]interface{} `json:"results,omitempty"`
	Products   []string               `json:"products,omitempty"`
	Plots      []string               `json:"plots,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
	Event      []int                  `json:"event,omitempty"`

	// ID is assigned by the backend on first successful deposit and is
	// immutable afterwards; the client never invents one.
	ID string `json:"id,omitempty"`

	// Unix timestamps. Creation is defaulted at validation time; Start and
	// Stop are set only by the execution backend and reset on each retry.
	Creation float64 `json:"creation,omitempty"`
	Start    float64 `json:"start,omitempty"`
	Stop     float64 `json:"stop,omitempty"`

	Attempt int    `json:"attempt"`
	Status  Status `json:"status"`
	Timeout int    `json:"timeout"`

	// Retries is a pointer so an explicit 0 (no re-queueing) is
	// distinguishable from an unset value that takes the default.
	Retries  *int `json:"retries"`
	Priority int  `json:"priority"`

	Config Config `json:"config"`
	Notify Notify `json:"notify"`
}

// New applies defaults to spec and validates it against the site allowlist,
// returning the constructed work item or a ValidationError
func New(spec Work, sites []string) (*Work, error) {
	w := spec
	w.ApplyDefaults()
	if err := w.Validate(sites); err != nil {
		return nil, err
	}
	return &w, nil
}

// ApplyDefaults populates the defaulted fields that are unset. Start and
// Stop are never defaulted; only the backend sets them.
func (w *Work) ApplyDefaults() {
	if w.Status == "" {
		w.Status = StatusCreated
	}
	if w.Timeout == 0 {
		w.Timeout = DefaultTimeout
	}
	if w.Retries == nil {
		retries := DefaultRetries
		w.Retries = &retries
	}
	if w.Priority == 0 {
		w.Priority = DefaultPriority
	}
	if w.Config.Strategy == "" {
		w.Config.Strategy = StrategyPermissive
	}
	if w.Creation == 0 {
		w.Creation = float64(time.Now().UnixNano()) / float64(time.Second)
	}
}

// Validate checks every construction invariant and reports all violations
// at once. sites is the workspace allowlist consulted under the strict
// strategy; it may be nil under the permissive strategy.
func (w *Work) Validate(sites []string) error {
	verr := &ValidationError{}

	if w.Pipeline == "" {
		verr.add("pipeline", "cannot be empty")
	} else if !pipelineRegex.MatchString(w.Pipeline) {
		verr.add("pipeline", "must contain only letters, digits, and hyphens")
	}

	if w.Site == "" {
		verr.add("site", "cannot be empty")
	}
	if w.User == "" {
		verr.add("user", "cannot be empty")
	}

	if w.Function != "" && len(w.Command) > 0 {
		verr.add("function", "function and command are mutually exclusive")
	}

	switch w.Config.Strategy {
	case StrategyPermissive:
	case StrategyStrict:
		if w.Site != "" && !containsSite(sites, w.Site) {
			verr.add("site", "%q is not a configured workspace site", w.Site)
		}
	default:
		verr.add("config.strategy", "unknown strategy %q", w.Config.Strategy)
	}

	if w.Attempt < 0 {
		verr.add("attempt", "must not be negative")
	}
	if w.Timeout < MinTimeout || w.Timeout > MaxTimeout {
		verr.add("timeout", "must be in [%d, %d]", MinTimeout, MaxTimeout)
	}
	if w.Retries != nil && (*w.Retries < 0 || *w.Retries > MaxRetries) {
		verr.add("retries", "must be in [0, %d]", MaxRetries)
	}
	if w.Priority < MinPriority || w.Priority > MaxPriority {
		verr.add("priority", "must be in [%d, %d]", MinPriority, MaxPriority)
	}

	if _, err := ParseStatus(string(w.Status)); err != nil {
		verr.add("status", "invalid status %q", w.Status)
	}

	return verr.orNil()
}

// Mode returns the execution mode. Validation guarantees function and
// command are never both set.
func (w *Work) Mode() Mode {
	switch {
	case w.Function != "":
		return ModeFunction
	case len(w.Command) > 0:
		return ModeCommand
	default:
		return ModeNoop
	}
}

// Payload produces the full field set, including defaults, as a flat
// JSON-compatible mapping. A results payload whose serialized form exceeds
// MaxResultsBytes is dropped with a warning rather than sent.
func (w *Work) Payload() (map[string]interface{}, error) {
	data, err := w.ToJSON()
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ToJSON encodes the work item as JSON, applying the oversized-results drop
func (w *Work) ToJSON() ([]byte, error) {
	out := *w
	if len(out.Results) > 0 {
		encoded, err := json.Marshal(out.Results)
		if err != nil {
			return nil, err
		}
		if len(encoded) > MaxResultsBytes {
			logger.WarnWithFields("dropping oversized results payload", map[string]interface{}{
				"id":       out.ID,
				"pipeline": out.Pipeline,
				"bytes":    len(encoded),
			})
			out.Results = nil
		}
	}
	return json.Marshal(out)
}

// FromPayload is the inverse of Payload, running the same defaulting and
// validation as New
func FromPayload(payload map[string]interface{}, sites []string) (*Work, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return FromJSON(data, sites)
}

// FromJSON decodes a work item from JSON, running the same defaulting and
// validation as New
func FromJSON(data []byte, sites []string) (*Work, error) {
	var spec Work
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return New(spec, sites)
}

func containsSite(sites []string, site string) bool {
	for _, s := range sites {
		if s == site {
			return true
		}
	}
	return false
}
