package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys []string
	err  error
}

func (f *fakeStore) Upload(_ context.Context, key, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestPublish_Keys(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"labels.csv", "0_pick/v_0_pick_0.mp4", ".cache/x", ".hidden"} {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	store := &fakeStore{}
	n, err := Publish(context.Background(), store, dir, "merl/v1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"merl/v1/labels.csv", "merl/v1/0_pick/v_0_pick_0.mp4"}, store.keys)
}

func TestPublish_UploadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.csv"), []byte("x"), 0o644))

	boom := errors.New("access denied")
	_, err := Publish(context.Background(), &fakeStore{err: boom}, dir, "", nil)
	require.ErrorIs(t, err, boom)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a/b.mp4", ObjectKey("", filepath.Join("a", "b.mp4")))
	assert.Equal(t, "p/a.csv", ObjectKey("p/", "a.csv"))
}
