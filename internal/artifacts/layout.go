package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vidaq/internal/textutil"
)

// ErrAlreadyExists reports that an item's artifact directory is already present.
var ErrAlreadyExists = errors.New("artifact directory already exists")

const (
	stagingDirName  = ".staging"
	defaultBaseName = "video"
	manifestExt     = ".m3u8"
)

// Layout maps catalog ids to artifact directories under Root.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// PathFor returns the artifact directory for id.
func (l Layout) PathFor(id int64) string {
	return filepath.Join(l.Root, strconv.FormatInt(id, 10))
}

// ManifestPath returns the playlist path for id with playlist stem base.
func (l Layout) ManifestPath(id int64, base string) string {
	return filepath.Join(l.PathFor(id), base+manifestExt)
}

// ManifestName returns the playlist file name for base.
func ManifestName(base string) string {
	return base + manifestExt
}

// BaseName derives the playlist stem from an uploaded file name: the final
// path element without its extension, sanitized for paths and URLs.
func BaseName(originalName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(originalName), "\\", "/")
	name = filepath.Base(name)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if clean := textutil.SanitizeFileName(stem); clean != "" {
		return clean
	}
	return defaultBaseName
}

// EnsureDirectory creates the artifact directory for id. A second call for
// the same id fails with ErrAlreadyExists.
func (l Layout) EnsureDirectory(id int64) (string, error) {
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return "", fmt.Errorf("create artifact root: %w", err)
	}
	dir := l.PathFor(id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, dir)
		}
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	return dir, nil
}

// StagingRoot returns the directory holding in-progress renders.
func (l Layout) StagingRoot() string {
	return filepath.Join(l.Root, stagingDirName)
}

// StageDir returns a fresh, empty render directory for fingerprint. Leftovers
// from an earlier failed render of the same content are removed.
func (l Layout) StageDir(fingerprint uuid.UUID) (string, error) {
	dir := filepath.Join(l.StagingRoot(), fingerprint.String())
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear render staging: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create render staging: %w", err)
	}
	return dir, nil
}

// Commit moves a completed render into place as the artifact directory for
// id. It fails with ErrAlreadyExists when the item directory is present, even
// as an empty directory created by another process.
func (l Layout) Commit(id int64, staged string) (string, error) {
	target := l.PathFor(id)
	if err := renameNoReplace(staged, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, target)
		}
		return "", fmt.Errorf("commit render: %w", err)
	}
	return target, nil
}

// renameReserved claims to with an exclusive Mkdir before renaming onto it.
// Used where the kernel offers no no-replace rename.
func renameReserved(from, to string) error {
	if err := os.Mkdir(to, 0o755); err != nil {
		return err
	}
	if err := os.Rename(from, to); err != nil {
		_ = os.Remove(to)
		return err
	}
	return nil
}

// ManifestReady reports whether the committed playlist for id exists.
func (l Layout) ManifestReady(id int64, base string) (bool, error) {
	info, err := os.Stat(l.ManifestPath(id, base))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat manifest: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Discard removes a staged render directory. Paths outside the staging root
// are refused.
func (l Layout) Discard(staged string) error {
	rel, err := filepath.Rel(l.StagingRoot(), staged)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to discard %q outside render staging", staged)
	}
	return os.RemoveAll(staged)
}
