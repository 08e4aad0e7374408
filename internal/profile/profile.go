// Package profile maps chronolog profiles to local database directories.
// A profile is one account on one server; each profile keeps its own local
// store, queue and sync watermark.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Default is the profile used when none is configured.
const Default = "default"

// EnvVar overrides the profile when no explicit profile is given.
const EnvVar = "CHRONOLOG_PROFILE"

// ErrInvalidProfile indicates the profile name format is invalid.
var ErrInvalidProfile = errors.New("invalid profile: must be lowercase alphanumeric with hyphens, 1-2 path segments")

// profileRegex allows one or two segments separated by "/". Segments are
// lowercase alphanumeric with inner hyphens, 1-64 characters.
var profileRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?(\/[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?)?$`)

// Validate checks a profile name.
func Validate(name string) error {
	if name == "" || len(name) > 129 {
		return ErrInvalidProfile
	}
	if strings.Contains(name, "--") {
		return ErrInvalidProfile
	}
	if !profileRegex.MatchString(name) {
		return ErrInvalidProfile
	}
	return nil
}

// Resolve picks the profile to use.
// Priority: explicit > CHRONOLOG_PROFILE > "default".
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if err := Validate(explicit); err != nil {
			return "", fmt.Errorf("invalid profile %q: %w", explicit, err)
		}
		return explicit, nil
	}
	if env := os.Getenv(EnvVar); env != "" {
		if err := Validate(env); err != nil {
			return "", fmt.Errorf("invalid %s %q: %w", EnvVar, env, err)
		}
		return env, nil
	}
	return Default, nil
}

// Root returns the directory holding every profile.
// Defaults to ~/.chronolog/profiles, falling back to ./.chronolog/profiles
// when the home directory is unavailable.
func Root() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".chronolog", "profiles")
	}
	return filepath.Join(home, ".chronolog", "profiles")
}

// Encode makes a profile name safe as a single directory name.
func Encode(name string) string {
	return strings.ReplaceAll(name, "/", "__")
}

// Decode reverses Encode.
func Decode(encoded string) string {
	return strings.ReplaceAll(encoded, "__", "/")
}

// Dir returns the directory of a profile under root. An empty root means Root().
func Dir(root, name string) string {
	if root == "" {
		root = Root()
	}
	return filepath.Join(root, Encode(name))
}

// List returns the profiles that have a directory under root, sorted by name.
func List(root string) ([]string, error) {
	if root == "" {
		root = Root()
	}
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: list %s: %w", root, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := Decode(e.Name())
		if Validate(name) == nil {
			out = append(out, name)
		}
	}
	return out, nil
}
