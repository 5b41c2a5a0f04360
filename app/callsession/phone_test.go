package callsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialablePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "formatted international", raw: "+1 (555) 010-0001", want: "+15550100001"},
		{name: "dashes", raw: "555-010-0002", want: "5550100002"},
		{name: "inner plus dropped", raw: "555+0100002", want: "5550100002"},
		{name: "leading whitespace", raw: "  +91 98765 43210", want: "+919876543210"},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "plus does not count", raw: "+123456789", wantErr: true},
		{name: "letters only", raw: "call me", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DialablePhone(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
