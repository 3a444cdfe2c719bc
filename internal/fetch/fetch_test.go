package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/videoteka/videoteka/internal/domain"
	"github.com/videoteka/videoteka/internal/infra/logger"
	"github.com/videoteka/videoteka/internal/telemetry"
)

func TestFormatSelector(t *testing.T) {
	cases := []struct {
		name string
		opts domain.Options
		want string
	}{
		{
			name: "best mp4",
			opts: domain.Options{Quality: "best", Format: "mp4"},
			want: "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		},
		{
			name: "1080p webm",
			opts: domain.Options{Quality: "1080p", Format: "webm"},
			want: "bestvideo[height<=1080][ext=webm]+bestaudio[ext=m4a]/best[height<=1080][ext=webm]/best",
		},
		{
			name: "480p default format",
			opts: domain.Options{Quality: "480p"},
			want: "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/best[height<=480][ext=mp4]/best",
		},
		{
			name: "audio best",
			opts: domain.Options{Quality: "audio", AudioQuality: "best"},
			want: "bestaudio/best",
		},
		{
			name: "audio 192k",
			opts: domain.Options{Quality: "audio", AudioQuality: "192k"},
			want: "bestaudio[ext=m4a]/bestaudio",
		},
		{
			name: "audio 128k",
			opts: domain.Options{Quality: "audio", AudioQuality: "128k"},
			want: "bestaudio[abr<=128]/bestaudio",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatSelector(tc.opts); got != tc.want {
				t.Errorf("FormatSelector() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	c := &Client{bin: "yt-dlp", rateLimitMBps: 2.5}
	opts := domain.Options{
		Quality:      "720p",
		Format:       "mp4",
		Subtitles:    true,
		SubtitleLang: "de",
		DestDir:      "/media",
	}

	args := c.buildArgs("https://example.com/v/1", opts)

	wantFlags := map[string]string{
		"-P":           "/media",
		"--sub-langs":  "de",
		"--limit-rate": "2.5M",
	}
	for flag, val := range wantFlags {
		if !hasFlagValue(args, flag, val) {
			t.Errorf("args missing %s %s: %v", flag, val, args)
		}
	}
	for _, bare := range []string{"--newline", "--continue", "--no-playlist", "--write-subs"} {
		if !contains(args, bare) {
			t.Errorf("args missing %s: %v", bare, args)
		}
	}
	if args[len(args)-1] != "https://example.com/v/1" {
		t.Errorf("URL must be the last argument, got %v", args)
	}
}

func TestBuildArgs_NoSubsNoLimit(t *testing.T) {
	c := &Client{bin: "yt-dlp"}
	args := c.buildArgs("https://example.com/v/2", domain.Options{Quality: "best", DestDir: "/media"})

	for _, flag := range []string{"--write-subs", "--limit-rate"} {
		if contains(args, flag) {
			t.Errorf("unexpected %s in %v", flag, args)
		}
	}
}

func TestClassify(t *testing.T) {
	exitErr := fmt.Errorf("exit status 1")

	cases := []struct {
		name   string
		stderr string
		want   error
	}{
		{"unsupported url", "ERROR: Unsupported URL: https://nope.example", domain.ErrPermanentFetch},
		{"private video", "ERROR: Private video. Sign in if you've been granted access", domain.ErrPermanentFetch},
		{"bad format", "ERROR: Requested format is not available", domain.ErrPermanentFetch},
		{"timeout", "ERROR: Unable to download webpage: The read operation timed out", domain.ErrTransientFetch},
		{"http 503", "ERROR: unable to download video data: HTTP Error 503: Service Unavailable", domain.ErrTransientFetch},
		{"connection reset", "ERROR: Connection reset by peer", domain.ErrTransientFetch},
		{"unknown defaults to transient", "something nobody has seen before", domain.ErrTransientFetch},
		{"empty stderr", "", domain.ErrTransientFetch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify(exitErr, tc.stderr)
			if !errors.Is(err, tc.want) {
				t.Errorf("Classify(%q) = %v, want %v", tc.stderr, err, tc.want)
			}
		})
	}
}

func TestClassify_ReasonIsReadable(t *testing.T) {
	err := Classify(fmt.Errorf("exit status 1"),
		"[youtube] extracting\nERROR: Video unavailable\n")
	if got := err.Error(); !errors.Is(err, domain.ErrPermanentFetch) ||
		!strings.Contains(got, "ERROR: Video unavailable") {
		t.Errorf("reason not surfaced: %q", got)
	}
}

// fakeTool writes a stand-in yt-dlp script so Download tests exercise the
// real process plumbing without the network.
func fakeTool(t *testing.T, script string) *Client {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "yt-dlp-fake")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}

	log, err := logger.New("", logger.LevelError, false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &Client{bin: path, grace: 2 * time.Second, log: log}
}

func TestDownload_StreamsLines(t *testing.T) {
	c := fakeTool(t, `
echo "[download] Destination: /media/clip.mp4"
echo "[download]  50.0% of 10.00MiB at 2.00MiB/s ETA 00:02"
echo "[download] 100.0% of 10.00MiB at 2.00MiB/s ETA 00:00"
`)

	var lines []string
	err := c.Download(context.Background(), "https://example.com/v", domain.Options{DestDir: t.TempDir()},
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}
}

func TestDownload_InterleavedStreamsAreSerialized(t *testing.T) {
	// yt-dlp progress goes to stdout while the ffmpeg stage reports
	// speed= on stderr, concurrently. Line delivery must be serial so the
	// per-job tracker can stay lock-free.
	c := fakeTool(t, `
(
  i=0
  while [ $i -le 99 ]; do
    echo "[download]  ${i}.0% of 10.00MiB at 1.00MiB/s ETA 00:10"
    i=$((i+1))
  done
) &
(
  j=0
  while [ $j -lt 100 ]; do
    echo "frame=  ${j} speed=1.5x" >&2
    j=$((j+1))
  done
) &
wait
`)

	tracker := telemetry.NewTracker()
	var lines int
	err := c.Download(context.Background(), "https://example.com/v", domain.Options{DestDir: t.TempDir()},
		func(line string) {
			lines++
			tracker.Apply(line)
		})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if lines != 200 {
		t.Errorf("got %d lines, want 200", lines)
	}
	snap, ok := tracker.Snapshot()
	if !ok {
		t.Fatal("no telemetry parsed")
	}
	if snap.Percent != 99 {
		t.Errorf("percent = %v, want 99", snap.Percent)
	}
	if snap.Rate != "1.5x" && snap.Rate != "1.00MiB/s" {
		t.Errorf("rate = %q, want a parsed rate", snap.Rate)
	}
}

func TestDownload_ExitErrorClassified(t *testing.T) {
	c := fakeTool(t, `
echo "ERROR: Video unavailable" >&2
exit 1
`)

	err := c.Download(context.Background(), "https://example.com/v", domain.Options{DestDir: t.TempDir()}, nil)
	if !errors.Is(err, domain.ErrPermanentFetch) {
		t.Fatalf("err = %v, want permanent", err)
	}
}

func TestDownload_CancelStopsProcess(t *testing.T) {
	c := fakeTool(t, `
trap 'kill "$pid" 2>/dev/null; exit 0' INT TERM
echo "[download]   1.0% of 10.00MiB at 1.00MiB/s ETA 01:00"
sleep 30 >/dev/null 2>&1 &
pid=$!
wait "$pid"
`)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	started := make(chan struct{}, 1)
	go func() {
		got <- c.Download(ctx, "https://example.com/v", domain.Options{DestDir: t.TempDir()},
			func(string) {
				select {
				case started <- struct{}{}:
				default:
				}
			})
	}()

	<-started
	cancel()

	select {
	case err := <-got:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Download did not return after cancel")
	}
}

func contains(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func hasFlagValue(args []string, flag, val string) bool {
	for i, a := range args {
		if a == flag && i+1 < len(args) && args[i+1] == val {
			return true
		}
	}
	return false
}

