package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the default webhook definitions file.
const ConfigFileName = "webhooks.yaml"

// SearchPaths returns the first existing regular file among paths.
func SearchPaths(paths []string) (string, error) {
	for _, path := range paths {
		if FileExists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("file not found in any of the search paths: %v", paths)
}

// DefaultConfigPaths returns the locations searched for filename:
// ./<filename>, ./config/<filename>, $HOOKBOX_HOME/<filename>, /etc/hookbox/<filename>.
func DefaultConfigPaths(filename string) []string {
	paths := []string{
		filepath.Join(".", filename),
		filepath.Join(".", "config", filename),
	}
	if home := os.Getenv("HOOKBOX_HOME"); home != "" {
		paths = append(paths, filepath.Join(home, filename))
	}
	return append(paths, filepath.Join("/etc/hookbox", filename))
}

// ResolveConfigPath returns explicit when set, otherwise searches the default
// locations for the webhook definitions file.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if !FileExists(explicit) {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	return SearchPaths(DefaultConfigPaths(ConfigFileName))
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
