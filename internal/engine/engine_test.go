package engine

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ivlev/verse2video/internal/analyzer"
	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/director"
	"github.com/ivlev/verse2video/internal/shaper"
	"github.com/ivlev/verse2video/internal/source"
	"github.com/ivlev/verse2video/internal/system"
	"github.com/ivlev/verse2video/internal/video"
)

// recordingWriter keeps the ink bounds of every frame instead of the pixels.
type recordingWriter struct {
	mu      sync.Mutex
	size    image.Point
	ink     []image.Rectangle
	failAt  int
	closed  bool
	aborted bool
}

func (w *recordingWriter) WriteFrame(img *image.RGBA) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.ink) == w.failAt {
		return errors.New("pipe closed")
	}
	if img.Bounds().Size() != w.size {
		return errors.New("wrong frame size")
	}
	w.ink = append(w.ink, analyzer.InkBounds(img, 128))
	return nil
}

func (w *recordingWriter) Close() error { w.closed = true; return nil }
func (w *recordingWriter) Abort()       { w.aborted = true }

type fakeEncoder struct {
	w      *recordingWriter
	opened bool
}

func (e *fakeEncoder) Open(_ context.Context, _ string, params config.Encode) (video.FrameWriter, error) {
	e.opened = true
	e.w.size = image.Pt(params.Width, params.Height)
	return e.w, nil
}

type fakeMuxer struct {
	err   error
	calls int
}

func (m *fakeMuxer) Mux(_ context.Context, _, _, outPath string) error {
	m.calls++
	if err := os.WriteFile(outPath, []byte("partial"), 0o644); err != nil {
		return err
	}
	return m.err
}

type fakePublisher struct {
	keys []string
}

func (p *fakePublisher) Publish(_ context.Context, key, _ string) (string, error) {
	p.keys = append(p.keys, key)
	return "mem://" + key, nil
}

func (p *fakePublisher) Close() error { return nil }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0o644))

	cfg := config.Default()
	cfg.Render.Width = 320
	cfg.Render.Height = 120
	cfg.Render.RightMargin = 10
	cfg.Render.FontSize = 24
	cfg.Render.FontPath = fontPath
	cfg.Workers = 1
	return cfg
}

func newProject(cfg config.Config) (*VideoProject, *fakeEncoder, *fakeMuxer) {
	enc := &fakeEncoder{w: &recordingWriter{}}
	mux := &fakeMuxer{}
	return NewVideoProject(cfg, enc, mux), enc, mux
}

func TestRunEmptyLineAndTwoWords(t *testing.T) {
	cfg := testConfig(t)
	p, enc, mux := newProject(cfg)
	out := filepath.Join(t.TempDir(), "out.mp4")

	res, err := p.Run(context.Background(), source.NewDocument("", "hello world"), "audio.mp3", out)
	require.NoError(t, err)

	assert.Equal(t, 40, res.Frames)
	assert.Equal(t, 2, res.Words)
	assert.Len(t, enc.w.ink, 40)
	assert.True(t, enc.w.closed)
	assert.Equal(t, 1, mux.calls)
	assert.InDelta(t, 40.0/30.0, res.VideoDuration.Seconds(), 1e-9)
	assert.Empty(t, res.Warnings)

	first, second := enc.w.ink[0], enc.w.ink[20]
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, enc.w.ink[i], "frame %d", i)
		assert.Equal(t, second, enc.w.ink[20+i], "frame %d", 20+i)
	}
	assert.Equal(t, first.Max.X, second.Max.X, "right edge must not move")
	assert.Less(t, second.Min.X, first.Min.X, "second state must extend left")
}

func TestFrameCountIsWordsTimesDelay(t *testing.T) {
	doc := source.Parse("one two three\nfour five\n\nsix")
	for _, delay := range []int{1, 3, 20} {
		cfg := testConfig(t)
		cfg.Timing.WordDelay = delay
		cfg.Workers = 3
		p, enc, _ := newProject(cfg)

		res, err := p.Run(context.Background(), doc, "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
		require.NoError(t, err)
		assert.Equal(t, 6*delay, res.Frames)
		assert.Len(t, enc.w.ink, 6*delay)
		assert.LessOrEqual(t, res.Stats.Workers, 3)
	}
}

func TestParallelRenderKeepsOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.WordDelay = 1
	cfg.Workers = 4
	p, enc, _ := newProject(cfg)

	_, err := p.Run(context.Background(), source.NewDocument("a bb ccc dddd eeeee ffffff"), "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)
	require.Len(t, enc.w.ink, 6)

	for i := 1; i < len(enc.w.ink); i++ {
		assert.Less(t, enc.w.ink[i].Min.X, enc.w.ink[i-1].Min.X, "frame %d out of order", i)
		assert.Equal(t, enc.w.ink[0].Max.X, enc.w.ink[i].Max.X)
	}
}

func TestMissingFontIsRenderError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Render.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	p, enc, mux := newProject(cfg)
	out := filepath.Join(t.TempDir(), "out.mp4")

	_, err := p.Run(context.Background(), source.NewDocument("hello"), "audio.mp3", out)
	require.Error(t, err)

	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, enc.opened)
	assert.Zero(t, mux.calls)
	assert.NoFileExists(t, out)
}

func TestCorruptFontIsRenderError(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Render.FontPath, []byte("garbage"), 0o644))
	p, _, _ := newProject(cfg)
	out := filepath.Join(t.TempDir(), "out.mp4")

	_, err := p.Run(context.Background(), source.NewDocument("hello"), "audio.mp3", out)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.NoFileExists(t, out)
}

func TestMuxFailureLeavesNoOutput(t *testing.T) {
	cfg := testConfig(t)
	p, _, mux := newProject(cfg)
	mux.err = errors.New("exit status 1")
	out := filepath.Join(t.TempDir(), "out.mp4")

	_, err := p.Run(context.Background(), source.NewDocument("hello"), "audio.mp3", out)
	var me *MuxError
	require.ErrorAs(t, err, &me)
	assert.NoFileExists(t, out)
}

func TestEncodeFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	p, enc, mux := newProject(cfg)
	enc.w.failAt = 5

	_, err := p.Run(context.Background(), source.NewDocument("hello world"), "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.True(t, enc.w.aborted)
	assert.False(t, enc.w.closed)
	assert.Zero(t, mux.calls)
}

func TestCancelledRunAborts(t *testing.T) {
	cfg := testConfig(t)
	p, enc, _ := newProject(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, source.NewDocument("hello world"), "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, enc.w.aborted)
}

func TestEmptyDocument(t *testing.T) {
	p, enc, _ := newProject(testConfig(t))

	_, err := p.Run(context.Background(), source.Parse("  \n\n "), "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.False(t, enc.opened)
}

func TestShapingErrorIsWarning(t *testing.T) {
	p, enc, _ := newProject(testConfig(t))

	res, err := p.Run(context.Background(), source.NewDocument("bad \xff", "fine line"), "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)
	assert.Len(t, enc.w.ink, 40)

	require.Len(t, res.Warnings, 1)
	var se *ShapingError
	require.ErrorAs(t, res.Warnings[0], &se)
	assert.Equal(t, 0, se.Line)
	assert.ErrorIs(t, se, shaper.ErrInvalidUTF8)
}

func TestOverflowWarning(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.WordDelay = 1
	p, _, _ := newProject(cfg)

	res, err := p.Run(context.Background(), source.NewDocument("this line is much too long for a small canvas"), "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Error(), "обрезана слева")
}

func TestEndCardAndPublish(t *testing.T) {
	cfg := testConfig(t)
	cfg.EndCard = config.EndCard{Content: "https://example.com", Hold: 15}
	p, enc, _ := newProject(cfg)
	pub := &fakePublisher{}
	p.Publisher = pub
	out := filepath.Join(t.TempDir(), "final.mp4")

	res, err := p.Run(context.Background(), source.NewDocument("hello world"), "audio.mp3", out)
	require.NoError(t, err)
	assert.Equal(t, 55, res.Frames)
	assert.Len(t, enc.w.ink, 55)
	assert.Equal(t, []string{"final.mp4"}, pub.keys)
	assert.Equal(t, "mem://final.mp4", res.PublishedAt)
}

func TestRunPlanUsesEditedHolds(t *testing.T) {
	cfg := testConfig(t)
	p, enc, _ := newProject(cfg)

	plan, _ := p.Plan(source.NewDocument("a b"))
	plan.Lines[0].Cues[1].Hold = 5
	plan.Lines[0].Cues[1].Text = "edited a"
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, director.WritePlan(plan, path))

	plan, err := director.ReadPlan(path)
	require.NoError(t, err)

	res, err := p.RunPlan(context.Background(), plan, "audio.mp3", filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)
	assert.Equal(t, 25, res.Frames)
	assert.Len(t, enc.w.ink, 25)
	assert.Less(t, enc.w.ink[24].Min.X, enc.w.ink[0].Min.X)
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	assert.Equal(t, "line 3 skipped: boom", (&ShapingError{Line: 2, Err: cause}).Error())
	assert.Equal(t, "render: load font: boom", (&RenderError{Op: "load font", Err: cause}).Error())
	assert.Equal(t, "encode: close: boom", (&EncodeError{Op: "close", Err: cause}).Error())
	assert.Equal(t, "mux: boom", (&MuxError{Err: cause}).Error())
	assert.ErrorIs(t, &MuxError{Err: cause}, cause)
}

func TestEndToEndWithFFmpeg(t *testing.T) {
	if !system.FFmpegAvailable() {
		t.Skip("ffmpeg not found on PATH")
	}
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Encode.Preset = "ultrafast"

	audio := filepath.Join(dir, "tone.m4a")
	err := ffmpeg.Input("sine=frequency=440:duration=3", ffmpeg.KwArgs{"f": "lavfi"}).
		Output(audio, ffmpeg.KwArgs{"c:a": "aac"}).
		OverWriteOutput().
		Run()
	require.NoError(t, err)

	out := filepath.Join(dir, "final.mp4")
	p := NewVideoProject(cfg, &video.FFmpegEncoder{}, video.NewFFmpegMuxer(cfg.Mux))
	res, err := p.Run(context.Background(), source.NewDocument("مرحبا بكم"), audio, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	got, err := system.GetMediaDuration(out)
	require.NoError(t, err)
	// two words at 20 frames each is shorter than the 3s tone
	want := min(res.VideoDuration.Seconds(), 3.0)
	assert.InDelta(t, want, got.Seconds(), 0.15)
}
