package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadAliases returns the default column aliases, overridden by the YAML file
// at path when path is non-empty.
//
//	workbook:
//	  - field: capacity
//	    candidates: ["Cap MW", "Capacity"]
func LoadAliases(path string) (domain.AliasSet, error) {
	defaults := domain.DefaultAliases()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AliasSet{}, fmt.Errorf("read aliases: %w", err)
	}

	var override domain.AliasSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return domain.AliasSet{}, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	for _, a := range append(override.API, override.Workbook...) {
		if a.Field == "" || len(a.Candidates) == 0 {
			return domain.AliasSet{}, fmt.Errorf("parse aliases %s: every entry needs a field and candidates", path)
		}
	}
	return defaults.Override(override), nil
}
