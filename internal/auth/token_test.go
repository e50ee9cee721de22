package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenFileName), []byte("file-token\n"), 0o600))

	tests := []struct {
		name     string
		explicit string
		env      map[string]string
		want     string
		wantOK   bool
	}{
		{
			name:     "explicit wins over everything",
			explicit: "explicit-token",
			env:      map[string]string{"WORKFLOW_TOKEN": "env-token"},
			want:     "explicit-token",
			wantOK:   true,
		},
		{
			name:   "primary env alias wins over secondary",
			env:    map[string]string{"WORKFLOW_TOKEN": "primary", "BUCKETS_TOKEN": "secondary"},
			want:   "primary",
			wantOK: true,
		},
		{
			name:   "secondary alias used when primary unset",
			env:    map[string]string{"BUCKETS_TOKEN": "secondary"},
			want:   "secondary",
			wantOK: true,
		},
		{
			name:   "falls through to secrets file",
			want:   "file-token",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envAliases {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			providers := []Provider{Explicit(tt.explicit)}
			for _, key := range envAliases {
				providers = append(providers, Env(key))
			}
			providers = append(providers, File(dir))

			token, ok := Chain(providers...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestChainNoToken(t *testing.T) {
	for _, key := range envAliases {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	token, ok := Chain(Explicit(""), File(t.TempDir()))
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestFileProviderTrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenFileName), []byte("  padded-token \n"), 0o600))

	token, ok := File(dir)()
	assert.True(t, ok)
	assert.Equal(t, "padded-token", token)
}
