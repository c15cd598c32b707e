package runner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
)

var ErrPlaybookNotFound = errors.New("playbook not found")

// Catalog exposes the playbook files of one directory
type Catalog struct {
	dir string
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func isPlaybookFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}

// List returns the playbooks sorted by name. A missing directory yields none.
func (c *Catalog) List() ([]entity.Playbook, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.Playbook{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playbooks directory: %w", err)
	}

	playbooks := make([]entity.Playbook, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isPlaybookFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		playbooks = append(playbooks, entity.Playbook{
			Name:     entry.Name(),
			Path:     filepath.Join(c.dir, entry.Name()),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}

	sort.Slice(playbooks, func(i, j int) bool { return playbooks[i].Name < playbooks[j].Name })
	return playbooks, nil
}

// Resolve returns the path of the named playbook. Names that would escape
// the directory are reported as not found.
func (c *Catalog) Resolve(name string) (string, error) {
	root, err := c.open(name)
	if err != nil {
		return "", err
	}
	defer root.Close()

	info, err := root.Stat(name)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%s: %w", name, ErrPlaybookNotFound)
	}

	abs, err := filepath.Abs(filepath.Join(c.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve playbook path: %w", err)
	}
	return abs, nil
}

// Read returns the content of the named playbook
func (c *Catalog) Read(name string) (string, error) {
	root, err := c.open(name)
	if err != nil {
		return "", err
	}
	defer root.Close()

	file, err := root.Open(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrPlaybookNotFound)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%s: %w", name, ErrPlaybookNotFound)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read playbook %s: %w", name, err)
	}
	return string(data), nil
}

func (c *Catalog) open(name string) (*os.Root, error) {
	if name == "" {
		return nil, fmt.Errorf("empty name: %w", ErrPlaybookNotFound)
	}
	root, err := os.OpenRoot(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrPlaybookNotFound)
		}
		return nil, fmt.Errorf("failed to open playbooks directory: %w", err)
	}
	return root, nil
}
