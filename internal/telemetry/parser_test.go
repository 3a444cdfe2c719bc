package telemetry

import "testing"

func TestTracker_DownloadLine(t *testing.T) {
	tr := NewTracker()

	changed := tr.Apply("[download]  42.1% of 120.5MiB at 5.2MiB/s ETA 00:12")
	if !changed {
		t.Fatal("expected progress change")
	}

	p, ok := tr.Snapshot()
	if !ok {
		t.Fatal("expected telemetry to be seen")
	}
	if p.Percent != 42.1 {
		t.Errorf("percent = %v, want 42.1", p.Percent)
	}
	if p.Rate != "5.2MiB/s" {
		t.Errorf("rate = %q", p.Rate)
	}
	if p.ETA != "00:12" {
		t.Errorf("eta = %q", p.ETA)
	}
	want := int64(120.5 * (1 << 20))
	if p.TotalBytes != want {
		t.Errorf("total = %d, want %d", p.TotalBytes, want)
	}
	if p.DownloadedBytes <= 0 || p.DownloadedBytes > p.TotalBytes {
		t.Errorf("downloaded = %d out of range", p.DownloadedBytes)
	}
}

func TestTracker_MalformedLinesIgnored(t *testing.T) {
	tr := NewTracker()
	tr.Apply("[download]  50.0% of 10.0MiB at 1.0MiB/s ETA 00:05")

	for _, junk := range []string{
		"",
		"WARNING: unable to extract channel id",
		"[download] garbage with no numbers",
		"not even a tagged line %%%",
	} {
		if tr.Apply(junk) {
			t.Errorf("line %q reported a change", junk)
		}
	}

	p, _ := tr.Snapshot()
	if p.Percent != 50.0 {
		t.Errorf("percent = %v, want last good 50.0", p.Percent)
	}
}

func TestTracker_DecreasingPercentRetained(t *testing.T) {
	tr := NewTracker()
	tr.Apply("[download]  80.0% of 10.0MiB at 1.0MiB/s ETA 00:05")

	// Fragment restart resets yt-dlp's counter; the high-water mark stays.
	tr.Apply("[download]  3.0% at 1.0MiB/s ETA 00:44")

	p, _ := tr.Snapshot()
	if p.Percent != 80.0 {
		t.Errorf("percent = %v, want 80.0", p.Percent)
	}
}

func TestTracker_PercentClamped(t *testing.T) {
	tr := NewTracker()
	tr.Apply("[download]  104.2% of 10.0MiB at 1.0MiB/s")

	p, _ := tr.Snapshot()
	if p.Percent != 100 {
		t.Errorf("percent = %v, want clamp to 100", p.Percent)
	}
}

func TestTracker_DestinationAndResume(t *testing.T) {
	tr := NewTracker()

	tr.Apply("[download] Destination: /media/Some Clip.f137.mp4")
	if tr.Destination() != "/media/Some Clip.f137.mp4" {
		t.Errorf("dest = %q", tr.Destination())
	}

	tr.Apply("[download] Resuming download at byte 1048576")
	if !tr.Resumed() {
		t.Error("expected resume marker")
	}

	tr.Apply(`[Merger] Merging formats into "/media/Some Clip.mp4"`)
	if tr.Destination() != "/media/Some Clip.mp4" {
		t.Errorf("dest after merge = %q", tr.Destination())
	}
}

func TestTracker_AlreadyDownloaded(t *testing.T) {
	tr := NewTracker()

	if !tr.Apply("[download] /media/Old Clip.mp4 has already been downloaded") {
		t.Fatal("expected change")
	}
	p, _ := tr.Snapshot()
	if p.Percent != 100 {
		t.Errorf("percent = %v, want 100", p.Percent)
	}
	if tr.Destination() != "/media/Old Clip.mp4" {
		t.Errorf("dest = %q", tr.Destination())
	}
}

func TestTracker_FFmpegSpeed(t *testing.T) {
	tr := NewTracker()
	if !tr.Apply("frame= 3201 fps=240 time=00:02:13.44 bitrate=1843.2kbits/s speed=10.1x") {
		t.Fatal("expected change from ffmpeg line")
	}
	p, _ := tr.Snapshot()
	if p.Rate != "10.1x" {
		t.Errorf("rate = %q, want 10.1x", p.Rate)
	}
}

func TestParseSize(t *testing.T) {
	gib := float64(1 << 30)
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"120.5MiB", int64(120.5 * (1 << 20)), true},
		{"~4.20GiB", int64(4.20 * gib), true},
		{"900KiB", 900 * 1024, true},
		{"512B", 512, true},
		{"1.5MB", 1500000, true},
		{"Unknown", 0, false},
		{"", 0, false},
		{"12.3XiB", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseSize(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseSize(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
