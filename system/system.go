// Package system stores a hardware system description on disk: a system.json
// with the system's settings next to one directory per version holding the
// imported modules.
package system

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/muhammadmuzzammil1998/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/example/pin-definition-importer/internal/debuglog"
	"github.com/example/pin-definition-importer/pindef"
	"github.com/example/pin-definition-importer/settings"
)

var logger = debuglog.New("system")

const (
	systemFile     = "system.json"
	moduleExt      = ".yaml"
	descriptionKey = "description"
)

var (
	ErrExists         = errors.New("system already exists")
	ErrVersionExists  = errors.New("version already exists")
	ErrUnknownVersion = errors.New("unknown version")
	ErrModuleExists   = errors.New("module already exists")
	ErrUnknownModule  = errors.New("unknown module")
)

type System struct {
	Name    string
	Version string

	// Path is the system directory holding system.json and the version directories
	Path string

	Data    *settings.Set
	Modules []*pindef.Module
}

// DefaultData returns the settings of a new system.
func DefaultData() *settings.Set {
	data := settings.NewSet()
	data.Add(descriptionKey, &settings.String{Meta: settings.Meta{Display: true, Editable: true}})
	return data
}

// Create makes a new system directory named name under parent, with an empty
// first version.
func Create(parent, name, version string) (*System, error) {
	if name == "" {
		return nil, fmt.Errorf("system name is empty")
	}
	if version == "" {
		return nil, fmt.Errorf("system version is empty")
	}

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", parent, err)
	}
	path := filepath.Join(parent, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return nil, fmt.Errorf("failed to create system directory: %w", err)
	}

	s := &System{Name: name, Version: version, Path: path, Data: DefaultData()}
	if err := s.writeData(); err != nil {
		return nil, err
	}
	if err := os.Mkdir(s.versionPath(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create version directory: %w", err)
	}

	logger.Debugf("created system %s version %s at %s", name, version, path)
	return s, nil
}

// Open loads the system at path in the given version. system.json may contain comments.
func Open(path, version string) (*System, error) {
	raw, err := os.ReadFile(filepath.Join(path, systemFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read system file: %w", err)
	}
	if !jsonc.Valid(raw) {
		return nil, fmt.Errorf("%s in %s is not valid JSON", systemFile, path)
	}

	data := settings.NewSet()
	if err := json.Unmarshal(jsonc.ToJSON(raw), data); err != nil {
		return nil, fmt.Errorf("failed to parse system file: %w", err)
	}

	s := &System{Name: filepath.Base(path), Version: version, Path: path, Data: data}
	if info, err := os.Stat(s.versionPath()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}
	if err := s.loadModules(); err != nil {
		return nil, err
	}

	logger.Infof("opened system %s version %s (%d modules)", s.Name, version, len(s.Modules))
	return s, nil
}

// OpenOrBranch opens the system at path in the given version. A version
// that does not exist yet is branched from the latest existing one.
func OpenOrBranch(path, version string) (*System, error) {
	s, err := Open(path, version)
	if !errors.Is(err, ErrUnknownVersion) {
		return s, err
	}

	versions, verr := Versions(path)
	if verr != nil {
		return nil, verr
	}
	if len(versions) == 0 {
		return nil, err
	}
	latest := versions[len(versions)-1]

	s, err = Open(path, latest)
	if err != nil {
		return nil, err
	}
	if err := s.NewVersion(version); err != nil {
		return nil, err
	}
	logger.Infof("branched version %s of %s from %s", version, s.Name, latest)
	return s, nil
}

// Versions lists the version directories of the system at path, sorted.
func Versions(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system directory: %w", err)
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// NewVersion copies the files of the current version into a new version and
// switches the system to it.
func (s *System) NewVersion(version string) error {
	if version == "" {
		return fmt.Errorf("system version is empty")
	}
	src := s.versionPath()
	dst := filepath.Join(s.Path, version)
	if err := os.Mkdir(dst, 0o755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrVersionExists, version)
		}
		return fmt.Errorf("failed to create version directory: %w", err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read version %s: %w", s.Version, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		logger.Debugf("copying %s to %s", entry.Name(), dst)
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}

	s.Version = version
	return nil
}

// Save writes system.json and one file per module into the current version.
// Module files of removed modules are deleted.
func (s *System) Save() error {
	logger.Debugf("saving system to %s", s.Path)
	if err := s.writeData(); err != nil {
		return err
	}

	keep := make(map[string]bool)
	for _, m := range s.Modules {
		out, err := yaml.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal module %s: %w", m.Name, err)
		}
		file := m.Name + moduleExt
		if err := os.WriteFile(filepath.Join(s.versionPath(), file), out, 0o644); err != nil {
			return fmt.Errorf("failed to write module %s: %w", m.Name, err)
		}
		keep[file] = true
	}

	stale, err := filepath.Glob(filepath.Join(s.versionPath(), "*"+moduleExt))
	if err != nil {
		return err
	}
	for _, path := range stale {
		if !keep[filepath.Base(path)] {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove stale module file: %w", err)
			}
		}
	}
	return nil
}

// ImportModule imports a hardware definition file as a new module of the system.
func (s *System) ImportModule(im *pindef.Importer, file string) (*pindef.Module, error) {
	m, err := im.ImportFile(file)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid module %s: %w", m.Name, err)
	}
	if err := s.AddModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *System) AddModule(m *pindef.Module) error {
	if s.Module(m.Name) != nil {
		return fmt.Errorf("%w: %s", ErrModuleExists, m.Name)
	}
	s.Modules = append(s.Modules, m)
	return nil
}

func (s *System) RemoveModule(name string) error {
	for i, m := range s.Modules {
		if m.Name == name {
			s.Modules = append(s.Modules[:i], s.Modules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownModule, name)
}

// Module returns the module with the given name, or nil if not found.
func (s *System) Module(name string) *pindef.Module {
	for _, m := range s.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// DisplayName turns "a-test-project" into "A Test Project".
func (s *System) DisplayName() string {
	words := strings.Split(s.Name, "-")
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		if size > 0 {
			words[i] = string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
		}
	}
	return strings.Join(words, " ")
}

func (s *System) Description() string {
	v, err := s.Data.Value(descriptionKey)
	if err != nil {
		return ""
	}
	desc, _ := v.(string)
	return desc
}

func (s *System) SetDescription(desc string) error {
	return s.Data.SetValue(descriptionKey, desc)
}

func (s *System) versionPath() string {
	return filepath.Join(s.Path, s.Version)
}

func (s *System) writeData() error {
	out, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal system data: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Path, systemFile), out, 0o644); err != nil {
		return fmt.Errorf("failed to write system file: %w", err)
	}
	return nil
}

func (s *System) loadModules() error {
	files, err := filepath.Glob(filepath.Join(s.versionPath(), "*"+moduleExt))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read module file: %w", err)
		}
		var m pindef.Module
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to parse module file %s: %w", file, err)
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(filepath.Base(file), moduleExt)
		}
		if err := s.AddModule(&m); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
