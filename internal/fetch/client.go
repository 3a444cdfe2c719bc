// Package fetch drives the external yt-dlp binary. It owns process
// lifecycle only: argument building, line streaming, graceful termination
// and exit classification. What the queue does with the lines is the
// engine's business.
package fetch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/videoteka/videoteka/internal/domain"
	"github.com/videoteka/videoteka/internal/infra/config"
	"github.com/videoteka/videoteka/internal/infra/logger"
	"github.com/videoteka/videoteka/internal/platform"
)

const probeTimeout = 60 * time.Second

// LineFunc receives each raw telemetry line, stdout and stderr interleaved
// in arrival order. Calls are serialized, never concurrent.
type LineFunc func(line string)

type Client struct {
	bin           string
	grace         time.Duration
	rateLimitMBps float64
	log           *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		bin:           cfg.Download.YTDLPPath,
		grace:         time.Duration(cfg.Download.GraceSeconds) * time.Second,
		rateLimitMBps: cfg.Download.RateLimitMBps,
		log:           log,
	}
}

// CheckBinary verifies the configured yt-dlp binary is reachable and warns
// about missing optional helpers.
func (c *Client) CheckBinary() error {
	return platform.ValidateDependencies(c.bin, c.log.Warn)
}

// Download runs yt-dlp for one URL and blocks until the process has fully
// exited. Cancelling ctx requests a graceful stop: SIGINT first so yt-dlp
// flushes its .part file, SIGKILL after the grace period. By the time
// Download returns, no process owned by this call is alive.
func (c *Client) Download(ctx context.Context, url string, opts domain.Options, onLine LineFunc) error {
	args := c.buildArgs(url, opts)
	c.log.Debug("starting %s %s", c.bin, strings.Join(args, " "))

	cmd := exec.Command(c.bin, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", domain.ErrPermanentFetch, c.bin, err)
	}

	var stderrTail strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(r io.Reader, isStderr bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			// Both streams deliver through one lock, so onLine sees a
			// serial line sequence and needs no locking of its own.
			mu.Lock()
			if isStderr {
				appendTail(&stderrTail, line)
			}
			if onLine != nil {
				onLine(line)
			}
			mu.Unlock()
		}
	}

	wg.Add(2)
	go read(stdoutPipe, false)
	go read(stderrPipe, true)

	// Wait must run after both pipes drain or their data is lost.
	waitErr := make(chan error, 1)
	go func() {
		wg.Wait()
		waitErr <- cmd.Wait()
	}()

	select {
	case err := <-waitErr:
		if err == nil {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		return Classify(err, stderrTail.String())

	case <-ctx.Done():
		c.terminate(cmd, waitErr)
		return fmt.Errorf("%s interrupted: %w", c.bin, ctx.Err())
	}
}

// terminate asks the process to stop and reaps it, escalating to a hard
// kill once the grace period runs out. A failed signal is a
// process-control error: logged, then force-killed, never left running.
func (c *Client) terminate(cmd *exec.Cmd, waitErr <-chan error) {
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		c.log.Error("signal %s (pid %d): %v, force killing", c.bin, cmd.Process.Pid, err)
		_ = cmd.Process.Kill()
		<-waitErr
		return
	}

	select {
	case <-waitErr:
	case <-time.After(c.grace):
		c.log.Warn("%s (pid %d) ignored interrupt for %s, force killing", c.bin, cmd.Process.Pid, c.grace)
		_ = cmd.Process.Kill()
		<-waitErr
	}
}

// Probe fetches metadata for a URL without downloading anything.
func (c *Client) Probe(ctx context.Context, url string) (domain.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, "-J", "--no-playlist", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return domain.VideoInfo{}, Classify(err, stderr.String())
	}

	var raw struct {
		Title     string  `json:"title"`
		Duration  float64 `json:"duration"`
		Uploader  string  `json:"uploader"`
		Thumbnail string  `json:"thumbnail"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return domain.VideoInfo{}, fmt.Errorf("decode %s metadata: %w", c.bin, err)
	}

	return domain.VideoInfo{
		Title:     raw.Title,
		Duration:  int(raw.Duration),
		Uploader:  raw.Uploader,
		Thumbnail: raw.Thumbnail,
	}, nil
}

// appendTail keeps the last chunk of stderr for exit classification without
// buffering a whole noisy run.
func appendTail(b *strings.Builder, line string) {
	const maxKeep = 8192
	if b.Len() >= maxKeep {
		// Drop the older half so the tail keeps tracking recent output.
		s := b.String()
		b.Reset()
		b.WriteString(s[len(s)/2:])
	}
	b.WriteString(line)
	b.WriteByte('\n')
}
