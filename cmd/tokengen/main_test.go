package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mindwell/internal/server/auth"
)

func TestRun_IssuesVerifiableToken(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-u", "7", "-k", "s3cret", "-ttl", "1h"}, &out))

	id, err := auth.GetUserIDFromToken(strings.TrimSpace(out.String()), []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestRun_Validation(t *testing.T) {
	t.Setenv("MINDWELL_SECRET_KEY", "")

	tests := []struct {
		name string
		args []string
	}{
		{"missing user", []string{"-k", "s"}},
		{"missing secret", []string{"-u", "7"}},
		{"bad ttl", []string{"-u", "7", "-k", "s", "-ttl", "-1h"}},
		{"unknown flag", []string{"-x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out))
			assert.Empty(t, out.String())
		})
	}
}

func TestRun_SecretFromEnv(t *testing.T) {
	t.Setenv("MINDWELL_SECRET_KEY", "from-env")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-u", "3"}, &out))

	id, err := auth.GetUserIDFromToken(strings.TrimSpace(out.String()), []byte("from-env"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}
