package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

func artifactWithPath(path *string) *entity.Artifact {
	return &entity.Artifact{ID: uuid.New(), StoragePath: path}
}

func TestResolveRelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.pdf"), []byte("x"), 0o644))

	rel := "doc.pdf"
	got, err := NewResolver(dir).Resolve(artifactWithPath(&rel))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc.pdf"), got)
}

func TestResolveAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(abs, []byte("x"), 0o644))

	got, err := NewResolver("/elsewhere").Resolve(artifactWithPath(&abs))
	require.NoError(t, err)
	assert.Equal(t, abs, got)
}

func TestResolveMissingPathIsFatal(t *testing.T) {
	r := NewResolver(t.TempDir())

	_, err := r.Resolve(artifactWithPath(nil))
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))

	empty := ""
	_, err = r.Resolve(artifactWithPath(&empty))
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
}

func TestResolvePendingPlaceholderIsFatal(t *testing.T) {
	pending := constants.StoragePending
	_, err := NewResolver(t.TempDir()).Resolve(artifactWithPath(&pending))
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
}

func TestResolveMissingFileIsFatal(t *testing.T) {
	gone := "never-written.pdf"
	_, err := NewResolver(t.TempDir()).Resolve(artifactWithPath(&gone))
	require.Error(t, err)
	assert.True(t, common.IsFatal(err))
}
