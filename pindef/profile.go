package pindef

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ProfileInfo contains metadata about a module profile
type ProfileInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	Vendor      string `yaml:"vendor"`
}

// MiscDefaults are hardware range defaults applied to pins the sheet left unset
type MiscDefaults struct {
	DACRange         *float64 `yaml:"dacRange,omitempty"`
	ADCRange         *float64 `yaml:"adcRange,omitempty"`
	DisablePowerdrop *bool    `yaml:"disablePowerdrop,omitempty"`
}

// Profile describes a family of hardware modules: which rows to skip on
// import and which range settings to assume when a sheet leaves them empty.
type Profile struct {
	ProfileInfo ProfileInfo `yaml:"profileInfo"`

	// IgnoreFunctions are skipped on import in addition to PWR
	IgnoreFunctions []Function `yaml:"ignoreFunctions,omitempty"`

	// FunctionDefaults apply to every pin of a function
	FunctionDefaults map[Function]MiscDefaults `yaml:"functionDefaults,omitempty"`

	// SpecificDefaults apply to single pins by id and win over FunctionDefaults
	SpecificDefaults map[string]MiscDefaults `yaml:"specificDefaults,omitempty"`
}

// ProfileManager handles loading profiles and applying their defaults
type ProfileManager struct {
	profiles map[string]*Profile
}

// NewProfileManager creates a profile manager and loads all profiles from dir
func NewProfileManager(dir string) (*ProfileManager, error) {
	pm := &ProfileManager{
		profiles: make(map[string]*Profile),
	}

	if err := pm.LoadProfiles(dir); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	return pm, nil
}

// LoadProfiles loads all YAML profile files from the specified directory
func (pm *ProfileManager) LoadProfiles(dir string) error {
	// A missing directory just means no defaults are available
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read profiles directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := pm.LoadProfile(path); err != nil {
			return fmt.Errorf("failed to load profile %s: %w", path, err)
		}
	}

	return nil
}

// LoadProfile loads a single profile file
func (pm *ProfileManager) LoadProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to parse profile YAML: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return err
	}

	pm.profiles[profile.ProfileInfo.Name] = &profile
	logger.Debugf("loaded profile %s from %s", profile.ProfileInfo.Name, path)
	return nil
}

// Validate checks the profile has a name and only names known functions
func (p *Profile) Validate() error {
	if p.ProfileInfo.Name == "" {
		return fmt.Errorf("profile must have a name")
	}
	for fn := range p.FunctionDefaults {
		if _, _, err := DisplayTypeFor(fn); err != nil {
			return fmt.Errorf("invalid function defaults in profile %s: %w", p.ProfileInfo.Name, err)
		}
	}
	return nil
}

// GetProfile returns a profile by name, or nil if not found
func (pm *ProfileManager) GetProfile(name string) *Profile {
	return pm.profiles[name]
}

// ListProfiles returns the names of all loaded profiles, sorted
func (pm *ProfileManager) ListProfiles() []string {
	names := make([]string, 0, len(pm.profiles))
	for name := range pm.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyDefaults fills the unset range settings of every pin in the module.
// Values present in the sheet always win; pin specific defaults win over
// function defaults.
func (p *Profile) ApplyDefaults(m *Module) {
	for i := range m.Pins {
		pin := &m.Pins[i]
		if specific, ok := p.SpecificDefaults[pin.id]; ok {
			specific.fill(&pin.Miscellaneous)
		}
		if byFunction, ok := p.FunctionDefaults[pin.function]; ok {
			byFunction.fill(&pin.Miscellaneous)
		}
	}
}

func (d MiscDefaults) fill(misc *Miscellaneous) {
	if misc.DACRange == nil && d.DACRange != nil {
		v := *d.DACRange
		misc.DACRange = &v
	}
	if misc.ADCRange == nil && d.ADCRange != nil {
		v := *d.ADCRange
		misc.ADCRange = &v
	}
	if misc.DisablePowerdrop == nil && d.DisablePowerdrop != nil {
		v := *d.DisablePowerdrop
		misc.DisablePowerdrop = &v
	}
}

// ApplyProfile applies the named profile to the module. An unknown profile is an error.
func (pm *ProfileManager) ApplyProfile(name string, m *Module) error {
	profile := pm.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("profile %s not found (loaded: %v)", name, pm.ListProfiles())
	}
	profile.ApplyDefaults(m)
	return nil
}
