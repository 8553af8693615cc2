package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_ZeroValue(t *testing.T) {
	var s Source

	assert.Equal(t, int64(0), s.ID)
	assert.Equal(t, "", s.URL)
	assert.Equal(t, "", s.Name)
}

func TestSource_Validate(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		wantErr bool
	}{
		{
			name:    "valid source",
			source:  Source{URL: "https://example.com/feed.xml", Name: "Example Feed"},
			wantErr: false,
		},
		{
			name:    "missing name",
			source:  Source{URL: "https://example.com/feed.xml"},
			wantErr: true,
		},
		{
			name:    "invalid url",
			source:  Source{URL: "not-a-url", Name: "Example Feed"},
			wantErr: true,
		},
		{
			name:    "empty url",
			source:  Source{Name: "Example Feed"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSource_Mutability(t *testing.T) {
	s := Source{Name: "Original Name", URL: "https://example.com/original.xml"}

	s.Name = "Updated Name"
	s.URL = "https://example.com/updated.xml"

	assert.Equal(t, "Updated Name", s.Name)
	assert.Equal(t, "https://example.com/updated.xml", s.URL)
}
