package work

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int {
	return &i
}

func TestNewDefaults(t *testing.T) {
	w, err := New(Work{Pipeline: "test-pipeline", Site: "local", User: "alice"}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, w.Status)
	assert.Equal(t, 0, w.Attempt)
	assert.Equal(t, DefaultPriority, w.Priority)
	assert.Equal(t, DefaultTimeout, w.Timeout)
	require.NotNil(t, w.Retries)
	assert.Equal(t, DefaultRetries, *w.Retries)
	assert.Equal(t, StrategyPermissive, w.Config.Strategy)
	assert.Empty(t, w.ID)
	assert.NotZero(t, w.Creation)

	// Start and Stop are only ever set by the backend
	assert.Zero(t, w.Start)
	assert.Zero(t, w.Stop)
}

func TestNewPipelineCharset(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
		wantErr  bool
	}{
		{name: "alphanumeric", pipeline: "pipeline01", wantErr: false},
		{name: "hyphenated", pipeline: "test-pipeline", wantErr: false},
		{name: "mixed case", pipeline: "Test-Pipeline-2", wantErr: false},
		{name: "single char", pipeline: "p", wantErr: false},
		{name: "empty", pipeline: "", wantErr: true},
		{name: "space", pipeline: "bad pipeline", wantErr: true},
		{name: "punctuation", pipeline: "bad pipeline!", wantErr: true},
		{name: "underscore", pipeline: "bad_pipeline", wantErr: true},
		{name: "slash", pipeline: "bad/pipeline", wantErr: true},
		{name: "unicode", pipeline: "pipelineé", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Work{Pipeline: tt.pipeline, Site: "local", User: "alice"}, nil)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields(), "pipeline")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewExecutionModes(t *testing.T) {
	base := Work{Pipeline: "test-pipeline", Site: "local", User: "alice"}

	t.Run("both function and command set", func(t *testing.T) {
		spec := base
		spec.Function = "f"
		spec.Command = []string{"x"}

		_, err := New(spec, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields(), "function")
	})

	t.Run("both unset is a no-op work item", func(t *testing.T) {
		w, err := New(base, nil)
		require.NoError(t, err)
		assert.Equal(t, ModeNoop, w.Mode())
	})

	t.Run("function mode", func(t *testing.T) {
		spec := base
		spec.Function = "process"
		spec.Parameters = map[string]interface{}{"n": 3}

		w, err := New(spec, nil)
		require.NoError(t, err)
		assert.Equal(t, ModeFunction, w.Mode())
	})

	t.Run("command mode", func(t *testing.T) {
		spec := base
		spec.Command = []string{"echo", "hello"}

		w, err := New(spec, nil)
		require.NoError(t, err)
		assert.Equal(t, ModeCommand, w.Mode())
	})
}

func TestNewNumericRanges(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Work)
		wantField string
	}{
		{name: "timeout below range", mutate: func(w *Work) { w.Timeout = -1 }, wantField: "timeout"},
		{name: "timeout above range", mutate: func(w *Work) { w.Timeout = MaxTimeout + 1 }, wantField: "timeout"},
		{name: "retries below range", mutate: func(w *Work) { w.Retries = intPtr(-1) }, wantField: "retries"},
		{name: "retries above range", mutate: func(w *Work) { w.Retries = intPtr(MaxRetries + 1) }, wantField: "retries"},
		{name: "priority below range", mutate: func(w *Work) { w.Priority = -2 }, wantField: "priority"},
		{name: "priority above range", mutate: func(w *Work) { w.Priority = MaxPriority + 1 }, wantField: "priority"},
		{name: "negative attempt", mutate: func(w *Work) { w.Attempt = -1 }, wantField: "attempt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Work{Pipeline: "test-pipeline", Site: "local", User: "alice"}
			tt.mutate(&spec)

			_, err := New(spec, nil)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields(), tt.wantField)
		})
	}

	t.Run("boundary values are valid", func(t *testing.T) {
		spec := Work{
			Pipeline: "test-pipeline",
			Site:     "local",
			User:     "alice",
			Timeout:  MaxTimeout,
			Retries:  intPtr(0),
			Priority: MaxPriority,
		}
		w, err := New(spec, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, *w.Retries)
	})
}

func TestNewStrictStrategy(t *testing.T) {
	sites := []string{"local", "cluster-a"}

	tests := []struct {
		name    string
		site    string
		sites   []string
		wantErr bool
	}{
		{name: "site in allowlist", site: "local", sites: sites, wantErr: false},
		{name: "site not in allowlist", site: "cluster-b", sites: sites, wantErr: true},
		{name: "no workspace file means empty allowlist", site: "local", sites: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Work{
				Pipeline: "test-pipeline",
				Site:     tt.site,
				User:     "alice",
				Config:   Config{Strategy: StrategyStrict},
			}

			_, err := New(spec, tt.sites)
			if tt.wantErr {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields(), "site")
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("permissive ignores allowlist", func(t *testing.T) {
		spec := Work{Pipeline: "test-pipeline", Site: "anywhere", User: "alice"}
		_, err := New(spec, nil)
		assert.NoError(t, err)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		spec := Work{
			Pipeline: "test-pipeline",
			Site:     "local",
			User:     "alice",
			Config:   Config{Strategy: "lenient"},
		}
		_, err := New(spec, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields(), "config.strategy")
	})
}

func TestValidationErrorReportsAllViolations(t *testing.T) {
	spec := Work{
		Pipeline: "bad pipeline!",
		Priority: 9,
	}

	_, err := New(spec, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := verr.Fields()
	assert.Contains(t, fields, "pipeline")
	assert.Contains(t, fields, "site")
	assert.Contains(t, fields, "user")
	assert.Contains(t, fields, "priority")
	assert.Contains(t, err.Error(), "pipeline")
}

func TestPayloadRoundTrip(t *testing.T) {
	spec := Work{
		Pipeline:   "round-trip",
		Site:       "local",
		User:       "alice",
		Function:   "process",
		Parameters: map[string]interface{}{"n": float64(3), "label": "x"},
		Products:   []string{"s3://bucket/out.nc"},
		Plots:      []string{"s3://bucket/plot.png"},
		Tags:       []string{"nightly", "reanalysis"},
		Event:      []int{20260831, 12},
	}

	w, err := New(spec, nil)
	require.NoError(t, err)

	payload, err := w.Payload()
	require.NoError(t, err)

	// The payload carries the full defaulted field set
	assert.Equal(t, "round-trip", payload["pipeline"])
	assert.Equal(t, float64(DefaultTimeout), payload["timeout"])
	assert.Equal(t, float64(DefaultRetries), payload["retries"])
	assert.Equal(t, "created", payload["status"])

	restored, err := FromPayload(payload, nil)
	require.NoError(t, err)
	assert.Equal(t, w, restored)
}

func TestFromJSON(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		w, err := FromJSON([]byte(`{"pipeline":"test-pipeline","site":"local","user":"alice"}`), nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, w.Status)
		assert.Equal(t, DefaultPriority, w.Priority)
	})

	t.Run("invalid document still validates", func(t *testing.T) {
		_, err := FromJSON([]byte(`{"pipeline":"bad pipeline!","site":"local","user":"alice"}`), nil)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := FromJSON([]byte(`{"pipeline":`), nil)
		require.Error(t, err)
		assert.False(t, errors.As(err, new(*ValidationError)))
	})
}

func TestToJSONDropsOversizedResults(t *testing.T) {
	w, err := New(Work{Pipeline: "test-pipeline", Site: "local", User: "alice"}, nil)
	require.NoError(t, err)
	w.Results = map[string]interface{}{
		"blob": strings.Repeat("x", MaxResultsBytes+1),
	}

	data, err := w.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"results"`)

	// The in-memory work item is left untouched
	assert.NotNil(t, w.Results)
}

func TestToJSONKeepsSmallResults(t *testing.T) {
	w, err := New(Work{Pipeline: "test-pipeline", Site: "local", User: "alice"}, nil)
	require.NoError(t, err)
	w.Results = map[string]interface{}{"count": 42}

	payload, err := w.Payload()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"count": float64(42)}, payload["results"])
}
