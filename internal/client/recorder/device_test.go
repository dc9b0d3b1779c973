package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mindwell/internal/common"
)

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.webm")
	require.NoError(t, os.WriteFile(path, []byte("webm-bytes"), 0o600))

	s, err := (&FileDevice{Path: path}).Open(context.Background())
	require.NoError(t, err)

	b, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(b))
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Close())
}

func TestFileDevice_Missing(t *testing.T) {
	_, err := (&FileDevice{Path: filepath.Join(t.TempDir(), "absent.webm")}).Open(context.Background())
	assert.ErrorIs(t, err, common.ErrPermission)
}

func TestCommandDevice_MissingBinary(t *testing.T) {
	_, err := (&CommandDevice{Path: "mindwell-no-such-capture-binary"}).Open(context.Background())
	assert.ErrorIs(t, err, common.ErrPermission)

	_, err = (&CommandDevice{}).Open(context.Background())
	assert.ErrorIs(t, err, common.ErrPermission)
}

func TestCommandDevice_ReadsStdout(t *testing.T) {
	s, err := (&CommandDevice{Path: "sh", Args: []string{"-c", "printf webm-bytes"}}).Open(context.Background())
	if err != nil {
		t.Skipf("sh not available: %v", err)
	}

	b, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(b))
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Close())
}

func TestCommandDevice_StopInterrupts(t *testing.T) {
	s, err := (&CommandDevice{Path: "sleep", Args: []string{"30"}}).Open(context.Background())
	if err != nil {
		t.Skipf("sleep not available: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, s)
		close(done)
	}()

	require.NoError(t, s.Stop())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("capture command ignored interrupt")
	}
	assert.NoError(t, s.Close())
}
