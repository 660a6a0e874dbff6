package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/shouni/go-web-research/pkg/types"
)

const presetExt = ".yaml"

var (
	// ErrPresetNotFound は指定された名前のプリセットが存在しない場合に返されます。
	ErrPresetNotFound = eris.New("プリセットが見つかりません")
	// ErrInvalidPresetName はプリセット名が空、またはパス区切りを含む場合に返されます。
	ErrInvalidPresetName = eris.New("プリセット名が不正です")
)

// Preset は保存された検索条件です。
type Preset struct {
	Name     string              `yaml:"name"`
	Keyword  string              `yaml:"keyword"`
	Provider string              `yaml:"provider,omitempty"`
	Details  bool                `yaml:"details"`
	Options  types.SearchOptions `yaml:"options"`
}

// PresetStore はプリセットをディレクトリ内のYAMLファイルとして管理します。
type PresetStore struct {
	dir string
}

// NewPresetStore は PresetStore を生成します。
func NewPresetStore(dir string) *PresetStore {
	return &PresetStore{dir: dir}
}

func (s *PresetStore) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", eris.Wrapf(ErrInvalidPresetName, "%q", name)
	}
	return filepath.Join(s.dir, name+presetExt), nil
}

// Save はプリセットを保存します。同名のプリセットは上書きされます。
func (s *PresetStore) Save(p Preset) error {
	path, err := s.path(p.Name)
	if err != nil {
		return err
	}
	if err := p.Options.Validate(); err != nil {
		return err
	}

	b, err := yaml.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "presets: marshal")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrapf(err, "presets: create dir %s", s.dir)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "presets: write %s", path)
	}
	return nil
}

// Load は名前を指定してプリセットを読み込みます。
func (s *PresetStore) Load(name string) (*Preset, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrPresetNotFound, "%q", name)
		}
		return nil, eris.Wrapf(err, "presets: read %s", path)
	}

	var p Preset
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, eris.Wrapf(err, "presets: parse %s", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSpace(name)
	}
	return &p, nil
}

// List は保存済みのプリセット名を昇順で返します。ディレクトリがない場合は空です。
func (s *PresetStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, eris.Wrapf(err, "presets: list %s", s.dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != presetExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), presetExt))
	}
	sort.Strings(names)
	return names, nil
}

// Delete はプリセットを削除します。
func (s *PresetStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(ErrPresetNotFound, "%q", name)
		}
		return eris.Wrapf(err, "presets: delete %s", path)
	}
	return nil
}
