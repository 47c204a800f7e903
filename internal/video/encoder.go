package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ivlev/verse2video/internal/config"
)

var ErrWriterClosed = errors.New("frame writer already closed")

// VideoEncoder открывает немой видеофайл, принимающий кадры по одному.
type VideoEncoder interface {
	Open(ctx context.Context, path string, params config.Encode) (FrameWriter, error)
}

// FrameWriter дописывает кадры в порядке вызовов. Close завершает файл, Abort
// останавливает кодирование и удаляет записанное.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort()
}

// FFmpegEncoder передает сырые RGBA кадры в дочерний процесс ffmpeg.
type FFmpegEncoder struct {
	Binary string // по умолчанию "ffmpeg"
}

func (e *FFmpegEncoder) Open(ctx context.Context, path string, params config.Encode) (FrameWriter, error) {
	if params.Width <= 0 || params.Height <= 0 || params.FPS <= 0 {
		return nil, fmt.Errorf("encoder: invalid geometry %dx%d@%d", params.Width, params.Height, params.FPS)
	}

	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, buildEncodeArgs(path, params)...)

	w := &ffmpegWriter{
		cmd:    cmd,
		path:   path,
		bounds: image.Rect(0, 0, params.Width, params.Height),
	}
	cmd.Stderr = &w.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	w.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return w, nil
}

func buildEncodeArgs(path string, params config.Encode) []string {
	encoder := params.VideoEncoder
	if encoder == "" {
		encoder = "libx264"
	}
	quality := params.Quality

	args := []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", strconv.Itoa(params.FPS),
		"-i", "-",
		"-an",
		"-c:v", encoder,
		"-pix_fmt", "yuv420p",
	}

	switch encoder {
	case "h264_videotoolbox":
		if quality > 0 {
			args = append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
		}
	case "h264_nvenc":
		if quality > 0 {
			args = append(args, "-cq", strconv.Itoa(quality))
		}
	default: // libx264
		if quality > 0 {
			args = append(args, "-crf", strconv.Itoa(quality))
		}
		if params.Preset != "" {
			args = append(args, "-preset", params.Preset)
		}
	}

	return append(args, path)
}

type ffmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr syncBuffer
	path   string
	bounds image.Rectangle
	frames int
	done   bool
}

func (w *ffmpegWriter) WriteFrame(img *image.RGBA) error {
	if w.done {
		return ErrWriterClosed
	}
	if img.Bounds().Size() != w.bounds.Size() {
		return fmt.Errorf("frame %d: size %v, encoder expects %v", w.frames, img.Bounds().Size(), w.bounds.Size())
	}
	if err := writeRawRGBA(w.stdin, img); err != nil {
		return fmt.Errorf("write frame %d: %w%s", w.frames, err, w.diagnostics())
	}
	w.frames++
	return nil
}

func (w *ffmpegWriter) Close() error {
	if w.done {
		return ErrWriterClosed
	}
	w.done = true

	w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		os.Remove(w.path)
		return fmt.Errorf("ffmpeg wait error: %w%s", err, w.diagnostics())
	}
	return nil
}

func (w *ffmpegWriter) Abort() {
	if w.done {
		os.Remove(w.path)
		return
	}
	w.done = true

	w.stdin.Close()
	if w.cmd.Process != nil {
		w.cmd.Process.Kill()
	}
	w.cmd.Wait()
	os.Remove(w.path)
}

func (w *ffmpegWriter) diagnostics() string {
	msg := bytes.TrimSpace(w.stderr.Bytes())
	if len(msg) == 0 {
		return ""
	}
	if len(msg) > 512 {
		msg = msg[len(msg)-512:]
	}
	return ", output: " + string(msg)
}

// syncBuffer собирает stderr ffmpeg, пока кадры еще пишутся.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// writeRawRGBA пишет пиксели img плотно упакованными. Подизображения
// сначала переупаковываются.
func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	if img.Stride == bounds.Dx()*4 && bounds.Min == (image.Point{}) {
		_, err := w.Write(img.Pix[:bounds.Dx()*bounds.Dy()*4])
		return err
	}
	packed := image.NewRGBA(image.Rectangle{Max: bounds.Size()})
	draw.Draw(packed, packed.Bounds(), img, bounds.Min, draw.Src)
	_, err := w.Write(packed.Pix)
	return err
}

// Encode пишет кадры в новое немое видео по пути path. При любой ошибке
// недописанный файл удаляется.
func Encode(ctx context.Context, enc VideoEncoder, path string, params config.Encode, frames []*image.RGBA) error {
	w, err := enc.Open(ctx, path, params)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return err
		}
		if err := w.WriteFrame(f); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}
