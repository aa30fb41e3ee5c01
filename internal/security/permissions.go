package security

import (
	"fmt"
	"os"
)

// PermConfigFile is the expected mode of a webhook config file: it holds
// signing secrets, so others get no access.
const PermConfigFile os.FileMode = 0640

// CheckConfigPermissions reports a config file that other users can read or write.
func CheckConfigPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if perm&0002 != 0 {
		return fmt.Errorf("file %s is world-writable (%04o), anyone can change signing secrets", path, perm)
	}

	if perm&0004 != 0 {
		return fmt.Errorf("file %s is world-readable (%04o), signing secrets are exposed (expected %04o)", path, perm, PermConfigFile)
	}

	return nil
}
