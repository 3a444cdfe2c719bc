package platform

import (
	"fmt"
	"os/exec"
)

// OptionalBinaries maps helper tools to the feature lost without them.
var OptionalBinaries = map[string]string{
	"ffmpeg": "stream merging and audio extraction",
}

// ValidateDependencies verifies the external download tool is reachable and
// reports which optional helpers are missing. fetcher is the configured
// yt-dlp path or binary name.
func ValidateDependencies(fetcher string, report func(format string, v ...any)) error {
	if _, err := exec.LookPath(fetcher); err != nil {
		return fmt.Errorf("required dependency: '%s' not found in PATH", fetcher)
	}

	for bin, feature := range OptionalBinaries {
		if _, err := exec.LookPath(bin); err != nil && report != nil {
			report("%s not found in PATH, %s will be unavailable", bin, feature)
		}
	}

	return nil
}
