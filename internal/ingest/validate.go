package ingest

import (
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ValidateVideoID accepts RFC 4122 UUIDs of versions 1 through 5 in either case.
func ValidateVideoID(id string) error {
	if !videoIDPattern.MatchString(strings.ToLower(id)) {
		return &Error{Kind: InvalidIdentifier, Message: "invalid video id"}
	}
	return nil
}
