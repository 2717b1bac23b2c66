// Package profile validates untrusted profile names and resolves them to
// directories under the configuration root. Profile names arrive from
// request parameters and command-line flags and are used as path
// components, so everything here treats them as hostile input.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted profile name, in runes.
const MaxNameLength = 50

// ErrInvalidName is wrapped by every validation failure.
var ErrInvalidName = errors.New("invalid profile name")

var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate trims and checks a profile name, returning the canonical form.
// The traversal checks after the character-class match are redundant while
// the pattern holds; they stay as an independent layer.
func Validate(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	if !nameRE.MatchString(name) {
		return "", fmt.Errorf("%w: characters outside A-Za-z, 0-9, _ and -", ErrInvalidName)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: path traversal", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: leading dot", ErrInvalidName)
	}
	return name, nil
}

// SafePath validates name and resolves it to a directory under root. The
// resolved path must remain a descendant of root after symlink resolution;
// a path that escapes, however it got there, is rejected.
func SafePath(root, name string) (string, error) {
	clean, err := Validate(name)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving profile root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	path := filepath.Join(base, clean)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: resolves outside profile root", ErrInvalidName)
	}
	return path, nil
}

// ListProfiles returns the valid profile names that have a directory under
// root, sorted. Entries starting with "." or "_" are skipped, as is
// anything that fails validation. A missing root is an empty listing.
func ListProfiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if _, err := Validate(name); err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
