package security

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	ErrPathTraversal = fmt.Errorf("path traversal detected")
	ErrAbsolutePath  = fmt.Errorf("absolute paths are not allowed")
	ErrReservedName  = fmt.Errorf("reserved filename not allowed")

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}
)

const maxSlugLength = 40

// ValidateExportPath rejects paths that escape the working directory.
func ValidateExportPath(path string) error {
	if filepath.IsAbs(path) {
		return ErrAbsolutePath
	}

	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") || strings.Contains(path, "..") {
		return ErrPathTraversal
	}

	base := filepath.Base(cleaned)
	if windowsReservedNames[stem(base)] {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return fmt.Errorf("filename cannot start with hyphen")
	}

	return nil
}

func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.TrimLeft(sanitized, ".-")
	sanitized = strings.TrimRight(sanitized, ". ")

	if windowsReservedNames[stem(sanitized)] {
		sanitized = sanitized + "_"
	}
	if sanitized == "" {
		sanitized = "design"
	}

	return sanitized
}

// Slug turns a free-text prompt into a short lowercase filename stem, e.g.
// "A modern wooden dining table" -> "a-modern-wooden-dining-table".
func Slug(prompt string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(prompt) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return SanitizeFilename(strings.Trim(b.String(), "-"))
}

func stem(base string) string {
	return strings.TrimSuffix(strings.ToLower(base), filepath.Ext(base))
}
