package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefix(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"design", NewDesignID, PrefixDesign},
		{"text", NewTextID, PrefixText},
		{"image", NewImageID, PrefixImage},
		{"frame", NewFrameID, PrefixFrame},
		{"session", NewSessionID, PrefixSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.gen()
			assert.True(t, strings.HasPrefix(id, tt.prefix+"_"), id)
			require.NoError(t, Validate(id, tt.prefix))
		})
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTextID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	err := Validate(NewImageID(), PrefixFrame)
	assert.Error(t, err)

	err = Validate("not-an-id", PrefixFrame)
	assert.Error(t, err)
}
