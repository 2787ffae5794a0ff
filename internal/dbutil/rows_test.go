package dbutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestColumnValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"json object", []byte(`{"a":1}`), map[string]interface{}{"a": float64(1)}},
		{"json array", []byte(`["x"]`), []interface{}{"x"}},
		{"plain text", []byte("plain"), "plain"},
		{"json string stays text", []byte(`"quoted"`), `"quoted"`},
		{"json number stays text", []byte(`42`), "42"},
		{"timestamp", ts, "2024-03-01T12:00:00Z"},
		{"integer", int64(7), int64(7)},
		{"null", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnValue(tt.in))
		})
	}
}
