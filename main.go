package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/pin-definition-importer/pindef"
	"github.com/example/pin-definition-importer/system"
)

// Version can be set during build time
var Version = "dev"

func usage() {
	fmt.Println("Pin Definition Importer")
	fmt.Printf("Version: %s\n", Version)
	fmt.Println("Usage: go run . <workbook> [profile]")
	fmt.Println("       go run . --system <system-dir> <version> <workbook> [profile]")
	fmt.Println("         (a new version is branched from the latest existing one)")
	fmt.Println("       go run . --version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Handle version flag
	if os.Args[1] == "--version" || os.Args[1] == "-v" {
		fmt.Printf("pin-definition-importer v%s\n", Version)
		os.Exit(0)
	}

	var systemDir, systemVersion string
	args := os.Args[1:]
	if args[0] == "--system" {
		if len(args) < 4 {
			usage()
			os.Exit(1)
		}
		systemDir, systemVersion = args[1], args[2]
		args = args[3:]
	}

	workbook := args[0]
	importer := pindef.NewImporter()
	var profile *pindef.Profile

	// Load import profiles and apply the requested one
	if len(args) > 1 {
		profileManager, err := pindef.NewProfileManager("profiles")
		if err != nil {
			fmt.Printf("Error loading profiles: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d import profiles: %v\n", len(profileManager.ListProfiles()), profileManager.ListProfiles())

		profile = profileManager.GetProfile(args[1])
		if profile == nil {
			fmt.Printf("Error: unknown profile %q\n", args[1])
			os.Exit(1)
		}
		importer = importer.WithProfile(profile)
	}

	var module *pindef.Module
	var err error
	if systemDir != "" {
		module, err = importIntoSystem(systemDir, systemVersion, importer, profile, workbook)
	} else {
		module, err = importer.ImportFile(workbook)
		if err == nil && profile != nil {
			profile.ApplyDefaults(module)
		}
	}
	if err != nil {
		fmt.Printf("Error importing %s: %v\n", workbook, err)
		os.Exit(1)
	}

	// Validate
	if err := module.Validate(); err != nil {
		fmt.Printf("Validation error: %v\n", err)
		os.Exit(1)
	}

	// Output the imported pins
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("IMPORTED PIN DEFINITIONS (%s)\n", filepath.Base(workbook))
	fmt.Println(strings.Repeat("=", 60))

	out, err := yaml.Marshal(module)
	if err != nil {
		fmt.Printf("Warning: Failed to marshal module: %v\n", err)
	} else {
		fmt.Printf("%s\n", string(out))
	}
	fmt.Println(strings.Repeat("=", 60))

	// Print result
	fmt.Printf("Successfully imported and validated: %s\n", workbook)
	fmt.Printf("%s", module.String())

	for i := range module.Pins {
		fmt.Printf("  %d. %s\n", i+1, module.Pins[i].String())
	}
}

// importIntoSystem opens the system at dir and stores the imported module in
// the given version. A missing system is created; a missing version is
// branched from the latest existing one.
func importIntoSystem(dir, version string, importer *pindef.Importer, profile *pindef.Profile, workbook string) (*pindef.Module, error) {
	sys, err := system.OpenOrBranch(dir, version)
	if err != nil {
		if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
			return nil, err
		}
		sys, err = system.Create(filepath.Dir(dir), filepath.Base(dir), version)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Created system %s (%s)\n", sys.DisplayName(), version)
	}

	module, err := sys.ImportModule(importer, workbook)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		profile.ApplyDefaults(module)
	}
	if err := sys.Save(); err != nil {
		return nil, err
	}
	fmt.Printf("Saved module %s to %s version %s\n", module.Name, sys.DisplayName(), sys.Version)
	return module, nil
}
