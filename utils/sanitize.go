package utils

import "github.com/microcosm-cc/bluemonday"

var stripper = bluemonday.StrictPolicy()

// StripHTML removes all markup from user supplied strings before they are
// stored or echoed back, e.g. profile fields and flash-style messages.
func StripHTML(input string) string {
	return stripper.Sanitize(input)
}
