package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// #region store

// Store is a filesystem-backed durable media store. Locators are stable
// root-relative paths derived from the suggested name, so re-ingesting the
// same source overwrites the previous copy instead of accumulating.
type Store struct {
	root string
}

// NewStore creates (if needed) the storage root and returns a Store.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is empty")
	}
	if err := os.MkdirAll(filepath.Join(root, "media"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// #endregion store

// #region put

// Put writes data under the suggested name and returns a stable locator.
// The write goes through a temp file and rename so a crashed run never
// leaves a half-written object behind the locator.
func (s *Store) Put(data []byte, suggestedName string) (string, error) {
	name := sanitizeName(suggestedName)
	if name == "" {
		return "", fmt.Errorf("put: empty object name")
	}
	locator := "media/" + name
	dest := filepath.Join(s.root, filepath.FromSlash(locator))

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put-*")
	if err != nil {
		return "", fmt.Errorf("put %s: %w", locator, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("put %s: %w", locator, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("put %s: %w", locator, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("put %s: %w", locator, err)
	}
	return locator, nil
}

// #endregion put

// #region path

// Path resolves a locator to an absolute filesystem path.
func (s *Store) Path(locator string) string {
	return filepath.Join(s.root, filepath.FromSlash(locator))
}

// #endregion path

// #region sanitize

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ".")
}

// #endregion sanitize
