package fileutil

import "regexp"

// MaxSafeNameLength is the maximum length of a name returned by SafeName.
const MaxSafeNameLength = 100

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeName converts name into a string usable as a file or directory name.
func SafeName(name string) string {
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if len(safe) > MaxSafeNameLength {
		safe = safe[:MaxSafeNameLength]
	}
	return safe
}
