package gate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFilenameBytes = 255

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// ValidateFilename checks that name is a single, portable path element.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: filename is empty", ErrValidation)
	}
	if len(name) > maxFilenameBytes {
		return fmt.Errorf("%w: filename longer than %d bytes", ErrValidation, maxFilenameBytes)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: filename is not valid UTF-8", ErrValidation)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: filename must not contain path separators", ErrValidation)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: filename %q is reserved", ErrValidation, name)
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: filename contains control characters", ErrValidation)
		}
	}
	base := name
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if _, ok := reservedNames[strings.ToUpper(strings.TrimSpace(base))]; ok {
		return fmt.Errorf("%w: filename %q is reserved", ErrValidation, name)
	}
	return nil
}

// ExtensionOf returns the lower-cased extension without the leading dot.
func ExtensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
