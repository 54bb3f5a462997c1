package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/domain/track"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		duration time.Duration
		wantCode string // empty means accepted
	}{
		{
			name:     "within range",
			settings: map[string]any{"min": "1m", "max": "6m"},
			duration: 3 * time.Minute,
		},
		{
			name:     "interlude under the default minimum",
			settings: map[string]any{},
			duration: 12 * time.Second,
			wantCode: CodeTooShort,
		},
		{
			name:     "too long",
			settings: map[string]any{"max": "10m"},
			duration: 25 * time.Minute,
			wantCode: CodeTooLong,
		},
		{
			name:     "exact bounds are inclusive",
			settings: map[string]any{"min": "2m", "max": "2m"},
			duration: 2 * time.Minute,
		},
		{
			name:     "no maximum by default",
			settings: map[string]any{},
			duration: 2 * time.Hour,
		},
		{
			name:     "unknown duration accepted",
			settings: map[string]any{"min": "1m"},
			duration: 0,
		},
		{
			name:     "unknown duration rejected on request",
			settings: map[string]any{"reject_unknown": true},
			duration: 0,
			wantCode: CodeUnknownDuration,
		},
		{
			name:     "numbers are seconds",
			settings: map[string]any{"min": 45},
			duration: 40 * time.Second,
			wantCode: CodeTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), testStation, track.Track{Duration: tt.duration})
			if tt.wantCode == "" {
				assert.True(t, result.Accepted)
				return
			}
			assert.False(t, result.Accepted)
			assert.Equal(t, tt.wantCode, result.Code)
		})
	}
}

func TestDurationLimitFilter_Unconfigured(t *testing.T) {
	f := NewDurationLimitFilter()
	result := f.Check(context.Background(), testStation, track.Track{Duration: time.Second})
	assert.True(t, result.Accepted)
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  string
	}{
		{
			name:     "duration strings",
			settings: map[string]any{"min": "90s", "max": "12m"},
		},
		{
			name:     "seconds as numbers",
			settings: map[string]any{"min": 30, "max": 600.5},
		},
		{
			name:     "min above max",
			settings: map[string]any{"min": "10m", "max": "5m"},
			wantErr:  "cannot be greater than max",
		},
		{
			name:     "negative max",
			settings: map[string]any{"max": "-1m"},
			wantErr:  "validation failed",
		},
		{
			name:     "unparseable duration",
			settings: map[string]any{"min": "soon"},
			wantErr:  "failed to decode settings",
		},
		{
			name:     "empty settings use defaults",
			settings: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			err := f.ValidateConfig(tt.settings)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
