package system

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var (
	AudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
	TextExtensions  = []string{".txt"}
)

// FindLatestFile возвращает самый свежий файл в dir с одним из расширений
// exts (без учета регистра).
func FindLatestFile(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено %s-файлов", dir, strings.Join(exts, "/"))
	}
	return latestFile, nil
}

func FindLatestAudio(dir string) (string, error) {
	return FindLatestFile(dir, AudioExtensions)
}

func FindLatestText(dir string) (string, error) {
	return FindLatestFile(dir, TextExtensions)
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetMediaDuration запрашивает у ffprobe длительность контейнера path.
func GetMediaDuration(path string) (time.Duration, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeDuration(out)
}

func parseProbeDuration(out string) (time.Duration, error) {
	var probe probeOutput
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// FFmpegAvailable сообщает, есть ли ffmpeg и ffprobe в PATH.
func FFmpegAvailable() bool {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}

// GetBestH264Encoder выбирает аппаратный H.264 кодек, если ffmpeg его
// поддерживает, иначе libx264.
func GetBestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	// Приоритет: VideoToolbox (macOS), затем NVENC
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, " "+name+" ") {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality возвращает качество по умолчанию для кодека: CRF для x264,
// CQ для NVENC, множитель битрейта (Q*100 кбит/с) для VideoToolbox.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}
