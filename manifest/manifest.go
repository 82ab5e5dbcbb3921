// Package manifest reads and writes the discovery manifest the XR loader
// consults to locate this runtime (spec.md §4.8 and §6).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

const fileFormatVersion = "1.0.0"

// DefaultPath is where the loader looks absent an override.
const DefaultPath = "/usr/local/share/openxr/1/active_runtime.json"

// EnvOverride is the environment variable the loader consults before
// falling back to DefaultPath (spec.md §6).
const EnvOverride = "XR_RUNTIME_JSON"

// Runtime describes the runtime library the loader should dlopen.
type Runtime struct {
	Name        string `json:"name"`
	LibraryPath string `json:"library_path"`
}

// Manifest is the top-level discovery document.
type Manifest struct {
	FileFormatVersion string  `json:"file_format_version"`
	Runtime           Runtime `json:"runtime"`
}

// New builds a manifest for the given runtime name and absolute library
// path, stamping the fixed file-format version.
func New(name, libraryPath string) Manifest {
	return Manifest{
		FileFormatVersion: fileFormatVersion,
		Runtime:           Runtime{Name: name, LibraryPath: libraryPath},
	}
}

// Write serializes m as indented JSON to path.
func Write(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// ResolvePath returns the path the loader would read: EnvOverride if set
// and non-empty, otherwise DefaultPath.
func ResolvePath() string {
	if p := os.Getenv(EnvOverride); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and parses the manifest at ResolvePath().
func Load() (Manifest, error) {
	path := ResolvePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if m.FileFormatVersion != fileFormatVersion {
		return Manifest{}, fmt.Errorf("manifest: unsupported file_format_version %q", m.FileFormatVersion)
	}
	if m.Runtime.Name == "" || m.Runtime.LibraryPath == "" {
		return Manifest{}, fmt.Errorf("manifest: runtime.name and runtime.library_path are required")
	}
	return m, nil
}
