package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Model
	}{
		{"unit", Unit},
		{"UNIT", Unit},
		{"units", Unit},
		{"OBJECT_GROUP", ObjectGroup},
		{"objectgroup", ObjectGroup},
		{" objectgroups ", ObjectGroup},
		{"Object", Object},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("collection")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "OBJECT_GROUP", ObjectGroup.String())
	assert.Equal(t, "objectgroups", ObjectGroup.Collection())
	assert.Equal(t, "objectgroup", ObjectGroup.Key())
	assert.Equal(t, "Model(9)", Model(9).String())
}
