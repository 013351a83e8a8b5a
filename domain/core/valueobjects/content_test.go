package valueobjects

import (
	"strings"
	"testing"

	pkgerrors "optio-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContent(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "plain text", text: "The door creaks open."},
		{name: "at limit", text: strings.Repeat("a", DefaultMaxContentLength)},
		{name: "over limit", text: strings.Repeat("a", DefaultMaxContentLength+1), wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "whitespace only", text: "   \n", wantErr: true},
		{name: "multibyte counts runes", text: strings.Repeat("é", DefaultMaxContentLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := NewContent(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.text, content.String())
		})
	}
}

func TestNewName(t *testing.T) {
	name, err := NewName("  ariadne  ", DefaultMaxNameLength)
	require.NoError(t, err)
	assert.Equal(t, "ariadne", name.String())

	_, err = NewName("   ", DefaultMaxNameLength)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewName(strings.Repeat("n", 33), DefaultMaxNameLength)
	assert.True(t, pkgerrors.IsValidation(err))
}
