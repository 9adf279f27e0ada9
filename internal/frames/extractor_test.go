package frames

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"handcut/internal/services"
)

const remoteSource = "https://cdn.example.com/final-table.mp4"

type fakeFFmpeg struct {
	t        *testing.T
	calls    [][]string
	failAt   int
	noOutput bool
}

// run mimics ffmpeg: it writes "jpeg@<offset>" to the output path (last arg).
func (f *fakeFFmpeg) run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	output := args[len(args)-1]
	entries, err := os.ReadDir(filepath.Dir(output))
	if err != nil {
		f.t.Fatalf("read work dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != lockFileName {
			f.t.Fatalf("previous frame %s not removed before next extraction", entry.Name())
		}
	}
	if f.failAt >= 0 && len(f.calls)-1 == f.failAt {
		return errors.New("ffmpeg extract: exit status 1: Invalid data found")
	}
	if f.noOutput {
		return nil
	}
	offset := args[slices.Index(args, "-ss")+1]
	return os.WriteFile(output, []byte("jpeg@"+offset), 0o644)
}

func newTestExtractor(t *testing.T, fake *fakeFFmpeg) (*Extractor, string) {
	t.Helper()
	base := t.TempDir()
	return NewExtractor("ffmpeg", base, nil, WithCommandRunner(fake.run)), base
}

func assertNoWorkDirs(t *testing.T, base string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(base, workDirPrefix+"*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected work dirs to be removed, found %v", matches)
	}
}

func TestFrameCount(t *testing.T) {
	cases := []struct {
		duration, interval float64
		maxFrames          int
		want               int
	}{
		{50, 10, 0, 5},
		{55, 10, 0, 5},
		{55, 10, 3, 3},
		{30, 10, 10, 3},
		{9, 10, 0, 0},
		{100, 7, 0, 14},
		{0, 10, 0, 0},
		{10, 0, 0, 0},
	}
	for _, tc := range cases {
		got := Options{Interval: tc.interval, MaxFrames: tc.maxFrames}.FrameCount(tc.duration)
		if got != tc.want {
			t.Fatalf("FrameCount(d=%v,i=%v,max=%d) = %d, want %d", tc.duration, tc.interval, tc.maxFrames, got, tc.want)
		}
	}
}

func TestExtractSamplesAtIntervalAndCleansUp(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: -1}
	extractor, base := newTestExtractor(t, fake)

	frames, err := extractor.Extract(context.Background(), remoteSource, 50, Options{Interval: 10, Quality: 3, Scale: "1280:-2"})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	seen := map[float64]bool{}
	for i, frame := range frames {
		if frame.Index != i || frame.TimestampSeconds != float64(i)*10 {
			t.Fatalf("frame %d has index %d ts %v", i, frame.Index, frame.TimestampSeconds)
		}
		if seen[frame.TimestampSeconds] {
			t.Fatalf("duplicate timestamp %v", frame.TimestampSeconds)
		}
		seen[frame.TimestampSeconds] = true
		want := fmt.Sprintf("jpeg@%.3f", frame.TimestampSeconds)
		if string(frame.Image) != want || frame.SizeBytes != len(want) {
			t.Fatalf("frame %d payload %q size %d", i, frame.Image, frame.SizeBytes)
		}
	}

	first := fake.calls[0]
	joined := strings.Join(first, " ")
	for _, want := range []string{"ffmpeg -y -hide_banner -loglevel error -ss 0.000 -i " + remoteSource, "-frames:v 1", "-q:v 3", "-vf scale=1280:-2"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
	if !strings.HasSuffix(first[len(first)-1], "frame_0000.jpg") {
		t.Fatalf("unexpected output path %q", first[len(first)-1])
	}
	assertNoWorkDirs(t, base)
}

func TestExtractHonoursMaxFramesAndOmitsEmptyScale(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: -1}
	extractor, _ := newTestExtractor(t, fake)

	frames, err := extractor.Extract(context.Background(), remoteSource, 3600, Options{Interval: 10, MaxFrames: 4})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != 4 || len(fake.calls) != 4 {
		t.Fatalf("expected 4 frames and calls, got %d/%d", len(frames), len(fake.calls))
	}
	if slices.Contains(fake.calls[0], "-vf") {
		t.Fatalf("expected no scale filter, got %v", fake.calls[0])
	}
	if !slices.Contains(fake.calls[0], "2") {
		t.Fatalf("expected default quality 2, got %v", fake.calls[0])
	}
}

func TestExtractFailureIsAtomicAndCleansUp(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: 2}
	extractor, base := newTestExtractor(t, fake)

	frames, err := extractor.Extract(context.Background(), remoteSource, 50, Options{Interval: 10})
	if frames != nil {
		t.Fatalf("expected no partial frames, got %d", len(frames))
	}
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Index != 2 || extractionErr.OffsetSeconds != 20 {
		t.Fatalf("unexpected failure position %+v", extractionErr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected extraction to stop at failure, got %d calls", len(fake.calls))
	}
	assertNoWorkDirs(t, base)
}

func TestExtractMissingOutputFails(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: -1, noOutput: true}
	extractor, base := newTestExtractor(t, fake)

	_, err := extractor.Extract(context.Background(), remoteSource, 20, Options{Interval: 10})
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) || extractionErr.Index != 0 {
		t.Fatalf("expected ExtractionError for frame 0, got %v", err)
	}
	assertNoWorkDirs(t, base)
}

func TestExtractCancellation(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: -1}
	extractor, base := newTestExtractor(t, fake)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extractor.Extract(ctx, remoteSource, 50, Options{Interval: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("cancellation must not be reported as tool failure: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no ffmpeg calls after cancel, got %d", len(fake.calls))
	}
	assertNoWorkDirs(t, base)
}

func TestExtractValidation(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: -1}
	extractor, _ := newTestExtractor(t, fake)
	ctx := context.Background()

	cases := map[string]struct {
		source   string
		duration float64
		opts     Options
		marker   error
	}{
		"zero interval":    {remoteSource, 50, Options{Interval: 0}, services.ErrValidation},
		"bad quality":      {remoteSource, 50, Options{Interval: 10, Quality: 40}, services.ErrValidation},
		"negative dur":     {remoteSource, -1, Options{Interval: 10}, services.ErrValidation},
		"empty source":     {"  ", 50, Options{Interval: 10}, services.ErrValidation},
		"missing file":     {filepath.Join(t.TempDir(), "missing.mp4"), 50, Options{Interval: 10}, services.ErrNotFound},
		"directory source": {t.TempDir(), 50, Options{Interval: 10}, services.ErrValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := extractor.Extract(ctx, tc.source, tc.duration, tc.opts)
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
	if len(fake.calls) != 0 {
		t.Fatalf("validation failures must not invoke ffmpeg, got %d calls", len(fake.calls))
	}
}

func TestExtractLocalFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "session.mp4")
	if err := os.WriteFile(source, []byte("video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	fake := &fakeFFmpeg{t: t, failAt: -1}
	extractor, _ := newTestExtractor(t, fake)

	frames, err := extractor.Extract(context.Background(), source, 25, Options{Interval: 10})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func TestExtractShortDurationYieldsNoFrames(t *testing.T) {
	fake := &fakeFFmpeg{t: t, failAt: -1}
	extractor, base := newTestExtractor(t, fake)

	frames, err := extractor.Extract(context.Background(), remoteSource, 5, Options{Interval: 10})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != 0 || len(fake.calls) != 0 {
		t.Fatalf("expected no frames and no calls, got %d/%d", len(frames), len(fake.calls))
	}
	assertNoWorkDirs(t, base)
}

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://x/y.mp4":     true,
		"rtmp://live/stream":  true,
		"/videos/a.mp4":       false,
		"C:\\videos\\a.mp4":   false,
		"./odd://name.mp4":    false,
		"s3://bucket/key.mp4": true,
		"relative/video.mp4":  false,
	}
	for in, want := range cases {
		if got := isURL(in); got != want {
			t.Fatalf("isURL(%q) = %v, want %v", in, got, want)
		}
	}
}
