package fetch

import (
	"fmt"
	"strings"

	"github.com/videoteka/videoteka/internal/domain"
)

// Patterns yt-dlp prints for failures no retry can fix.
var permanentMarkers = []string{
	"unsupported url",
	"is not a valid url",
	"video unavailable",
	"private video",
	"this video is not available",
	"account associated with this video has been terminated",
	"requested format is not available",
	"sign in to confirm your age",
	"http error 404",
	"http error 403",
	"http error 410",
}

var transientMarkers = []string{
	"timed out",
	"timeout",
	"temporary failure",
	"connection reset",
	"connection refused",
	"network is unreachable",
	"getaddrinfo",
	"http error 5",
	"incomplete read",
	"unable to download webpage",
}

// Classify turns a process exit into the queue's error taxonomy, using the
// captured stderr tail. Unknown failures count as transient so they get the
// bounded retry budget before the job fails for good.
func Classify(exitErr error, stderrTail string) error {
	tail := strings.ToLower(stderrTail)

	for _, marker := range permanentMarkers {
		if strings.Contains(tail, marker) {
			return fmt.Errorf("%w: %s", domain.ErrPermanentFetch, firstErrorLine(stderrTail, exitErr))
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(tail, marker) {
			return fmt.Errorf("%w: %s", domain.ErrTransientFetch, firstErrorLine(stderrTail, exitErr))
		}
	}

	return fmt.Errorf("%w: %s", domain.ErrTransientFetch, firstErrorLine(stderrTail, exitErr))
}

// firstErrorLine picks the most useful human-readable reason: the first
// ERROR: line from stderr, else the last non-empty line, else the exit error.
func firstErrorLine(stderrTail string, exitErr error) string {
	lines := strings.Split(stderrTail, "\n")

	var lastNonEmpty string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lastNonEmpty = l
		if strings.HasPrefix(l, "ERROR:") {
			return truncateForLog(l, 300)
		}
	}
	if lastNonEmpty != "" {
		return truncateForLog(lastNonEmpty, 300)
	}
	if exitErr != nil {
		return exitErr.Error()
	}
	return "unknown error"
}
