package engine

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/Aman-CERP/corpusctl/configs"
	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

// GlobalSettingsFile holds the settings shared by every index.
const GlobalSettingsFile = "_global.conf.json"

// SettingsFile returns the settings file name of index name.
func SettingsFile(name string) string {
	return name + ".conf.json"
}

// SettingsSource reads index settings files from a directory, or from the
// defaults embedded in the binary.
type SettingsSource struct {
	fsys     fs.FS
	dir      string
	embedded bool
}

// NewSettingsSource reads settings from dir. An empty dir uses the
// embedded defaults.
func NewSettingsSource(dir string) *SettingsSource {
	if dir == "" {
		sub, err := fs.Sub(configs.Settings, configs.SettingsDir)
		if err != nil {
			// The embedded directory is fixed at build time.
			panic(err)
		}
		return &SettingsSource{fsys: sub, dir: configs.SettingsDir, embedded: true}
	}
	return &SettingsSource{fsys: os.DirFS(dir), dir: dir}
}

// Embedded reports whether the built-in settings are used.
func (s *SettingsSource) Embedded() bool {
	return s.embedded
}

func (s *SettingsSource) location(file string) string {
	if s.embedded {
		return "embedded:" + path.Join(s.dir, file)
	}
	return filepath.Join(s.dir, file)
}

// Load returns the settings document of index name: the content of
// <name>.conf.json with its "settings" key set to the content of
// _global.conf.json. Missing or invalid files are ConfigLoad errors.
func (s *SettingsSource) Load(name string) (json.RawMessage, error) {
	global, err := s.readObject(name, GlobalSettingsFile)
	if err != nil {
		return nil, err
	}
	payload, err := s.readObject(name, SettingsFile(name))
	if err != nil {
		return nil, err
	}

	globalRaw, err := json.Marshal(global)
	if err != nil {
		return nil, cerrors.ConfigLoad(name, s.location(GlobalSettingsFile), err)
	}
	payload["settings"] = globalRaw

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, cerrors.ConfigLoad(name, s.location(SettingsFile(name)), err)
	}
	return out, nil
}

func (s *SettingsSource) readObject(index, file string) (map[string]json.RawMessage, error) {
	data, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		return nil, cerrors.ConfigLoad(index, s.location(file), err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, cerrors.ConfigLoad(index, s.location(file), fmt.Errorf("invalid JSON: %w", err))
	}
	if obj == nil {
		return nil, cerrors.ConfigLoad(index, s.location(file), fmt.Errorf("not a JSON object"))
	}
	return obj, nil
}
