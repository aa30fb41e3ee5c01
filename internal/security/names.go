package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	branchPattern = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// MaxConfigNameLength bounds webhook names used in routes and storage.
const MaxConfigNameLength = 64

// ValidateConfigName ensures a webhook config name is safe for use in URLs,
// log lines and queue keys.
func ValidateConfigName(name string) error {
	if name == "" {
		return fmt.Errorf("webhook name cannot be empty")
	}
	if len(name) > MaxConfigNameLength {
		return fmt.Errorf("webhook name too long (maximum %d characters)", MaxConfigNameLength)
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("webhook name cannot start with '-' or '.'")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("webhook name contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
	}
	return nil
}

// ValidateBranchName ensures a git branch name used for push filtering is well formed.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("branch name cannot start with '-'")
	}
	if !branchPattern.MatchString(branch) {
		return fmt.Errorf("branch name contains invalid characters")
	}
	return nil
}
