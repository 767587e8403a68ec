package storage

import (
	"os"
	"path/filepath"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

// Resolver maps an artifact's storage_path to a readable local file.
type Resolver struct {
	dataDir string
}

func NewResolver(dataDir string) *Resolver {
	return &Resolver{dataDir: dataDir}
}

// Resolve returns the absolute path to the artifact's bytes. A missing or
// placeholder path means the upload never finished; retrying cannot fix
// that, so the error is fatal.
func (r *Resolver) Resolve(a *entity.Artifact) (string, error) {
	if a.StoragePath == nil || *a.StoragePath == "" {
		return "", common.Fatalf("artifact %s has no storage path", a.ID)
	}
	sp := *a.StoragePath
	if sp == constants.StoragePending {
		return "", common.Fatalf("artifact %s upload is still pending", a.ID)
	}

	path := sp
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dataDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", common.Fatalf("artifact %s file missing at %s", a.ID, path)
		}
		return "", common.WrapError(err, "stat artifact file")
	}
	return path, nil
}
