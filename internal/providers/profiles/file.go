package profiles

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

// FilePattern selects the profile files under the store directory
const FilePattern = "**/*.{yaml,yml,toml,json}"

// FileStore serves profiles loaded from a directory tree. A file holds either
// one profile or a "profiles" list; a profile without an id takes its file
// name.
type FileStore struct {
	fsys   fs.FS
	logger *zap.Logger

	mu       sync.RWMutex
	profiles map[string]*profile.Profile
}

// NewFileStore loads every profile under dir
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	return NewFileStoreFS(os.DirFS(dir), logger)
}

// NewFileStoreFS loads every profile in fsys
func NewFileStoreFS(fsys fs.FS, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{fsys: fsys, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the directory; the previous set is kept on error
func (s *FileStore) Reload() error {
	files, err := doublestar.Glob(s.fsys, FilePattern)
	if err != nil {
		return fmt.Errorf("glob profiles: %w", err)
	}
	sort.Strings(files)

	loaded := make(map[string]*profile.Profile)
	origin := make(map[string]string)
	for _, name := range files {
		records, err := s.readFile(name)
		if err != nil {
			return err
		}
		for _, p := range records {
			if prev, dup := origin[p.ID]; dup {
				return fmt.Errorf("profile %q defined in both %s and %s", p.ID, prev, name)
			}
			origin[p.ID] = name
			loaded[p.ID] = p
		}
	}

	s.mu.Lock()
	s.profiles = loaded
	s.mu.Unlock()

	s.logger.Info("Profiles loaded", zap.Int("files", len(files)), zap.Int("profiles", len(loaded)))
	return nil
}

type profileFile struct {
	Profiles []*profile.Profile `json:"profiles" yaml:"profiles" toml:"profiles"`
}

func (s *FileStore) readFile(name string) ([]*profile.Profile, error) {
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	unmarshal := unmarshalerFor(name)

	var list profileFile
	if err := unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	records := list.Profiles

	if len(records) == 0 {
		var single profile.Profile
		if err := unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if single.ID == "" {
			base := path.Base(name)
			single.ID = strings.TrimSuffix(base, path.Ext(base))
		}
		records = []*profile.Profile{&single}
	}

	for i, p := range records {
		if p == nil {
			return nil, fmt.Errorf("parse %s: profile #%d is empty", name, i+1)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("parse %s: profile #%d: %w", name, i+1, err)
		}
	}
	return records, nil
}

func unmarshalerFor(name string) func([]byte, any) error {
	switch strings.ToLower(path.Ext(name)) {
	case ".toml":
		return toml.Unmarshal
	case ".json":
		return sonic.Unmarshal
	default:
		return yaml.Unmarshal
	}
}

// Get returns a copy of the profile with id
func (s *FileStore) Get(ctx context.Context, id string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, id)
	}
	return p.Clone(), nil
}

// List returns copies of every profile ordered by id
func (s *FileStore) List(ctx context.Context) ([]*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*profile.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.profiles[id].Clone())
	}
	return out, nil
}
