package fetch

import (
	"fmt"
	"strings"

	"github.com/videoteka/videoteka/internal/domain"
)

// buildArgs assembles the yt-dlp invocation for one job. --newline keeps
// progress on separate lines so the telemetry parser sees clean records;
// --continue makes a later resume pick up existing .part files.
func (c *Client) buildArgs(url string, opts domain.Options) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"--continue",
		"-P", opts.DestDir,
		"-o", "%(title)s.%(ext)s",
		"-f", FormatSelector(opts),
	}

	if opts.Subtitles {
		lang := opts.SubtitleLang
		if lang == "" {
			lang = "en"
		}
		args = append(args, "--write-subs", "--sub-langs", lang)
	}

	if c.rateLimitMBps > 0 {
		args = append(args, "--limit-rate", fmt.Sprintf("%gM", c.rateLimitMBps))
	}

	return append(args, url)
}

// FormatSelector maps the job options to a yt-dlp -f expression. The
// quality/format matrix follows the desktop app this daemon replaces.
func FormatSelector(opts domain.Options) string {
	format := opts.Format
	if format == "" {
		format = "mp4"
	}

	if opts.Quality == "audio" {
		switch opts.AudioQuality {
		case "", "best":
			return "bestaudio/best"
		case "192k":
			return "bestaudio[ext=m4a]/bestaudio"
		default:
			return "bestaudio[abr<=128]/bestaudio"
		}
	}

	var height int
	switch opts.Quality {
	case "1080p":
		height = 1080
	case "720p":
		height = 720
	case "480p":
		height = 480
	}

	if height == 0 {
		return fmt.Sprintf("bestvideo[ext=%s]+bestaudio[ext=m4a]/best[ext=%s]/best", format, format)
	}
	return fmt.Sprintf("bestvideo[height<=%d][ext=%s]+bestaudio[ext=m4a]/best[height<=%d][ext=%s]/best",
		height, format, height, format)
}

// splitByNewlineOrCR is a bufio.SplitFunc that also breaks on bare carriage
// returns, which yt-dlp uses to redraw its progress line.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func truncateForLog(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
