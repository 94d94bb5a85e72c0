package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxNameAttempts bounds name-collision retries. With 128-bit random
// identifiers a collision is astronomically unlikely; hitting the bound
// is surfaced as a storage failure.
const maxNameAttempts = 4

// persist writes data under the upload root with a freshly generated
// name and returns the resulting asset. The name is regenerated on
// collision; any partially written file is removed on failure.
func (p *Pipeline) persist(ext string, data []byte) (*Asset, error) {
	var lastErr error
	for i := 0; i < maxNameAttempts; i++ {
		name := newStorageName(ext)
		path, err := p.writeFile(name, data)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return &Asset{
			Size:        int64(len(data)),
			StorageName: name,
			Path:        path,
			URL:         p.baseURL + "/" + name,
		}, nil
	}
	return nil, fmt.Errorf("exhausted storage name attempts: %w", lastErr)
}

// writeFile creates <root>/<name> exclusively and writes data. The
// resolved target is independently checked to stay inside the upload
// root even though generated names cannot carry separators.
func (p *Pipeline) writeFile(name string, data []byte) (string, error) {
	path, err := filepath.Abs(filepath.Join(p.root, name))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, p.root+string(os.PathSeparator)) || filepath.Dir(path) != p.root {
		return "", fmt.Errorf("storage target escapes upload root")
	}

	// O_EXCL doubles as atomic collision detection between concurrent
	// writers without a lock.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}
