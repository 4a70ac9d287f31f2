// Package security validates names that end up in file paths.
package security

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsafeName is returned for a name that would not stay a single file
// name component.
var ErrUnsafeName = errors.New("unsafe name")

// ValidateBeamName checks that name can be joined onto an output directory
// without escaping it. Beam names come from command lines and from fil_file
// keys of parameter files, so they are never trusted.
func ValidateBeamName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrUnsafeName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrUnsafeName, name)
	}
	return nil
}
