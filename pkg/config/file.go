package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML form of the gatekeeper parameters. Pointer fields
// distinguish "absent" from an explicit false.
type FileConfig struct {
	Enabled       *bool   `yaml:"enabled"`
	StrictMode    *bool   `yaml:"strict_mode"`
	ReservedRoles *string `yaml:"reserved_roles"`
}

// LoadFile reads a YAML configuration file and applies it to the store
// through the privileged write path. Loading a file that changes a
// restart-only parameter after Seal fails, so full files belong at startup;
// use ReloadFile for the lightweight reload signal.
func LoadFile(path string, s *Store) error {
	fc, err := readFile(path)
	if err != nil {
		return err
	}
	scope := SessionScope{Privileged: true}
	if fc.Enabled != nil {
		if err := s.Set(ParamEnabled, fmt.Sprintf("%t", *fc.Enabled), scope); err != nil {
			return err
		}
	}
	if fc.StrictMode != nil {
		if err := s.Set(ParamStrictMode, fmt.Sprintf("%t", *fc.StrictMode), scope); err != nil {
			return err
		}
	}
	if fc.ReservedRoles != nil {
		if err := s.Set(ParamReservedRoles, *fc.ReservedRoles, scope); err != nil {
			return err
		}
	}
	return nil
}

// ReloadFile applies only the live-reloadable parameters from a YAML file.
// Restart-only values in the file are ignored, matching the host's reload
// semantics where such settings keep their boot-time values.
func ReloadFile(path string, s *Store) error {
	fc, err := readFile(path)
	if err != nil {
		return err
	}
	if fc.Enabled != nil {
		return s.Set(ParamEnabled, fmt.Sprintf("%t", *fc.Enabled), SessionScope{Privileged: true})
	}
	return nil
}

func readFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}
