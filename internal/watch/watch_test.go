package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlang/flow/internal/code"
)

func TestInitialContentIsDelivered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.flow")
	require.NoError(t, os.WriteFile(path, []byte("Thing(User)"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // stop right after the initial delivery

	var got []string
	err := Run(ctx, []string{path}, func(p string, src code.Code) error {
		got = append(got, src.String())
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1)
	assert.Equal(t, "Thing(User)", got[0])
}

func TestCallbackErrorStopsTheLoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.flow")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	wantErr := assert.AnError
	err := Run(context.Background(), []string{path}, func(string, code.Code) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestMissingFileFails(t *testing.T) {
	err := Run(context.Background(), []string{filepath.Join(t.TempDir(), "absent.flow")}, func(string, code.Code) error {
		return nil
	})
	assert.Error(t, err)
}
