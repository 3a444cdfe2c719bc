// Package telemetry normalizes the raw progress lines emitted by yt-dlp
// (and the ffmpeg stages it spawns) into a Progress struct. Lines that match
// nothing are simply skipped; malformed telemetry must never take a worker
// down.
package telemetry

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/videoteka/videoteka/internal/domain"
)

var (
	rePct     = regexp.MustCompile(`(-?[0-9]+(?:\.[0-9]+)?)%`)
	reSpeed   = regexp.MustCompile(`\bat\s+([^\s]+)`)
	reETA     = regexp.MustCompile(`\bETA\s+([0-9:]+)`)
	reOf      = regexp.MustCompile(`\bof\s+~?\s*([^\s]+)`)
	reDest    = regexp.MustCompile(`^\[download\]\s+Destination:\s+(.+)$`)
	reDone    = regexp.MustCompile(`^\[download\]\s+(.+?)\s+has already been downloaded`)
	reMerge   = regexp.MustCompile(`\[Merger\]\s+Merging formats into\s+"(.+)"`)
	reResume  = regexp.MustCompile(`\[download\]\s+Resuming download at byte`)
	reFFSpeed = regexp.MustCompile(`\bspeed=\s*([^\s]+)`)

	reSize = regexp.MustCompile(`^~?([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?i?B)$`)
)

// Tracker accumulates telemetry for one job. It is not safe for concurrent
// use; a worker owns exactly one tracker for the lifetime of one fetch.
type Tracker struct {
	progress domain.Progress
	seen     bool

	dest    string
	resumed bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply parses one raw line. It returns true when the normalized progress
// changed, i.e. an update is worth publishing.
func (t *Tracker) Apply(line string) bool {
	l := strings.TrimSpace(line)
	if l == "" {
		return false
	}

	if m := reDest.FindStringSubmatch(l); len(m) > 1 {
		t.dest = strings.TrimSpace(m[1])
		return false
	}
	if m := reMerge.FindStringSubmatch(l); len(m) > 1 {
		t.dest = strings.TrimSpace(m[1])
		return false
	}
	if reResume.MatchString(l) {
		t.resumed = true
		return false
	}
	if m := reDone.FindStringSubmatch(l); len(m) > 1 {
		t.dest = strings.TrimSpace(m[1])
		t.progress.Percent = 100
		t.progress.ETA = ""
		t.seen = true
		return true
	}

	if strings.HasPrefix(l, "[download]") {
		return t.applyDownloadLine(l)
	}

	// ffmpeg merge/remux stage reports speed= on stderr.
	if m := reFFSpeed.FindStringSubmatch(l); len(m) > 1 {
		if t.progress.Rate == m[1] {
			return false
		}
		t.progress.Rate = m[1]
		t.seen = true
		return true
	}

	return false
}

func (t *Tracker) applyDownloadLine(l string) bool {
	changed := false

	if m := rePct.FindStringSubmatch(l); len(m) > 1 {
		if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
			pct = clampPercent(pct)
			// A drop below the last known good value is a recoverable
			// anomaly (fragment restarts, multi-file formats); keep the
			// high-water mark.
			if pct > t.progress.Percent || !t.seen {
				t.progress.Percent = pct
				changed = true
			}
		}
	}
	if m := reOf.FindStringSubmatch(l); len(m) > 1 {
		if b, ok := ParseSize(m[1]); ok && b != t.progress.TotalBytes {
			t.progress.TotalBytes = b
			changed = true
		}
	}
	if m := reSpeed.FindStringSubmatch(l); len(m) > 1 {
		if m[1] != t.progress.Rate {
			t.progress.Rate = m[1]
			changed = true
		}
	}
	if m := reETA.FindStringSubmatch(l); len(m) > 1 {
		if m[1] != t.progress.ETA {
			t.progress.ETA = m[1]
			changed = true
		}
	}

	if changed {
		t.seen = true
		if t.progress.TotalBytes > 0 {
			t.progress.DownloadedBytes = int64(t.progress.Percent / 100 * float64(t.progress.TotalBytes))
		}
	}
	return changed
}

// Snapshot returns the current normalized progress and whether any telemetry
// has been parsed yet.
func (t *Tracker) Snapshot() (domain.Progress, bool) {
	return t.progress, t.seen
}

// Destination reports the output path announced by the tool, empty until
// seen. A merge step supersedes the per-stream destination.
func (t *Tracker) Destination() string {
	return t.dest
}

// Resumed reports whether the tool continued from a partial file.
func (t *Tracker) Resumed() bool {
	return t.resumed
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ParseSize converts yt-dlp size literals like 120.5MiB, 4.2GiB or 900KiB
// to bytes. Decimal units (KB, MB, GB) are accepted as well.
func ParseSize(s string) (int64, bool) {
	m := reSize.FindStringSubmatch(strings.TrimSpace(s))
	if len(m) < 3 {
		return 0, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	var mult float64
	switch strings.ToUpper(m[2]) {
	case "B":
		mult = 1
	case "KIB":
		mult = 1 << 10
	case "MIB":
		mult = 1 << 20
	case "GIB":
		mult = 1 << 30
	case "TIB":
		mult = 1 << 40
	case "KB":
		mult = 1e3
	case "MB":
		mult = 1e6
	case "GB":
		mult = 1e9
	case "TB":
		mult = 1e12
	default:
		return 0, false
	}

	return int64(val * mult), true
}
