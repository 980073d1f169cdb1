package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		explicit []string
		content  string
		want     []string
		wantErr  error
	}{
		{
			name:     "explicit tags are lowercased and deduplicated",
			explicit: []string{"Work", "work", " HOME "},
			content:  "no hashtags here",
			want:     []string{"work", "home"},
		},
		{
			name:    "hashtags are extracted from content",
			content: "buy milk #shopping and eggs #Shopping #todo",
			want:    []string{"shopping", "todo"},
		},
		{
			name:     "explicit tags come before hashtags",
			explicit: []string{"pinned"},
			content:  "remember this #later",
			want:     []string{"pinned", "later"},
		},
		{
			name:     "hashtag matching an explicit tag is not repeated",
			explicit: []string{"shopping"},
			content:  "groceries #shopping",
			want:     []string{"shopping"},
		},
		{
			name:     "invalid explicit tag fails the request",
			explicit: []string{"has spaces"},
			wantErr:  ErrInvalidTag,
		},
		{
			name:     "explicit tag over 30 chars fails",
			explicit: []string{"abcdefghijabcdefghijabcdefghijx"},
			wantErr:  ErrInvalidTag,
		},
		{
			name:    "oversized hashtags are silently skipped",
			content: "#abcdefghijabcdefghijabcdefghijx #ok",
			want:    []string{"ok"},
		},
		{
			name:     "empty explicit entries are dropped",
			explicit: []string{"", "  ", "real"},
			want:     []string{"real"},
		},
		{
			name:     "hyphen and underscore are allowed",
			explicit: []string{"to-do", "follow_up"},
			want:     []string{"to-do", "follow_up"},
		},
		{
			name: "no tags yields empty slice, not nil",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTags(tt.explicit, tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, got)
		})
	}
}
