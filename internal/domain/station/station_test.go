package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStation_String(t *testing.T) {
	assert.Equal(t, "Jazz Radio", Station{ID: "1", Name: "Jazz Radio"}.String())
	assert.Equal(t, "42", Station{ID: "42"}.String())
}

func TestFind(t *testing.T) {
	stations := []Station{
		{ID: "100", Name: "Rock"},
		{ID: "200", Name: "100"},
		{ID: "300", Name: "Jazz"},
	}

	tests := []struct {
		name   string
		key    string
		wantID string
		found  bool
	}{
		{name: "by id", key: "300", wantID: "300", found: true},
		{name: "by name", key: "Rock", wantID: "100", found: true},
		{name: "id beats name", key: "100", wantID: "100", found: true},
		{name: "missing", key: "Blues", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := Find(stations, tt.key)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantID, s.ID)
			}
		})
	}
}
