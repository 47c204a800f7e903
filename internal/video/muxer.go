package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/verse2video/internal/config"
)

// Muxer сводит немое видео с аудиодорожкой.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
}

// FFmpegMuxer перекодирует видео и аудио в один файл, обрезая по более
// короткому из потоков.
type FFmpegMuxer struct {
	Params config.Mux
	Binary string // по умолчанию "ffmpeg"
}

func NewFFmpegMuxer(params config.Mux) *FFmpegMuxer {
	return &FFmpegMuxer{Params: params}
}

func (m *FFmpegMuxer) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	for _, in := range []string{videoPath, audioPath} {
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("mux input: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	bin := m.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, m.buildArgs(videoPath, audioPath, outPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("ffmpeg muxing failed: %w, output: %s", err, tail(out, 1024))
	}
	return nil
}

func (m *FFmpegMuxer) buildArgs(videoPath, audioPath, outPath string) []string {
	video := ffmpeg.Input(videoPath).Video()
	audio := ffmpeg.Input(audioPath).Audio()

	kw := ffmpeg.KwArgs{
		"c:v":      m.Params.VideoCodec,
		"c:a":      m.Params.AudioCodec,
		"pix_fmt":  "yuv420p",
		"shortest": "",
	}
	if m.Params.AudioBitrate != "" {
		kw["b:a"] = m.Params.AudioBitrate
	}

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outPath, kw).
		OverWriteOutput().
		GetArgs()
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
