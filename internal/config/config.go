package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrBadDimensions = errors.New("width and height must be positive even numbers")
	ErrBadMargin     = errors.New("right margin must lie inside the canvas")
	ErrNoFont        = errors.New("font path cannot be empty")
	ErrBadFontSize   = errors.New("font size must be positive")
	ErrBadFPS        = errors.New("fps must be positive")
	ErrBadWordDelay  = errors.New("word delay must be at least one frame")
	ErrBadCodec      = errors.New("video and audio codecs cannot be empty")
)

// Config is the immutable parameter set of one pipeline run. It is passed by
// value; nothing in the engine mutates it.
type Config struct {
	Render  Render  `yaml:"render"`
	Timing  Timing  `yaml:"timing"`
	Encode  Encode  `yaml:"encode"`
	Mux     Mux     `yaml:"mux"`
	Workers int     `yaml:"workers"` // 0 = sized from the host
	EndCard EndCard `yaml:"end_card"`
	Publish Publish `yaml:"publish"`
	Server  Server  `yaml:"server"`

	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
}

type Render struct {
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	RightMargin int      `yaml:"right_margin"`
	FontPath    string   `yaml:"font_path"`
	FontSize    float64  `yaml:"font_size"`
	DPI         float64  `yaml:"dpi"`
	TextColor   [3]uint8 `yaml:"text_color"`
	KeepHarakat bool     `yaml:"keep_harakat"` // draw vowel marks instead of dropping them
}

type Timing struct {
	FPS       int `yaml:"fps"`
	WordDelay int `yaml:"word_delay"` // frames each reveal state is held
}

// Encode configures the silent intermediate video.
type Encode struct {
	Width, Height int    `yaml:"-"`
	FPS           int    `yaml:"-"`
	VideoEncoder  string `yaml:"video_encoder"` // empty = detect the best H.264 encoder
	Quality       int    `yaml:"quality"`       // 0 = encoder default
	Preset        string `yaml:"preset"`
}

// Mux configures the final audio+video pass.
type Mux struct {
	VideoCodec   string `yaml:"video_codec"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
}

// EndCard appends a QR code frame after the last verse when Content is set.
type EndCard struct {
	Content string `yaml:"content"`
	Hold    int    `yaml:"hold"` // frames
}

type Publish struct {
	Backend      string `yaml:"backend"` // "", "s3" or "nats"
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
	Endpoint     string `yaml:"endpoint"` // S3-compatible providers
	NATSURL      string `yaml:"nats_url"`
}

type Server struct {
	Addr          string        `yaml:"addr"`
	UploadDir     string        `yaml:"upload_dir"`
	VideoDir      string        `yaml:"video_dir"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

// Default returns the reference parameters: 1280x720 at 30 fps, white 60pt
// text pinned 50px from the right edge, 20 frames per word, 192k AAC.
func Default() Config {
	return Config{
		Render: Render{
			Width:       1280,
			Height:      720,
			RightMargin: 50,
			FontPath:    "static/fonts/Amiri-Regular.ttf",
			FontSize:    60,
			DPI:         72,
			TextColor:   [3]uint8{255, 255, 255},
		},
		Timing: Timing{
			FPS:       30,
			WordDelay: 20,
		},
		Encode: Encode{
			VideoEncoder: "libx264",
			Quality:      23,
			Preset:       "medium",
		},
		Mux: Mux{
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "192k",
		},
		EndCard: EndCard{
			Hold: 90,
		},
		Server: Server{
			Addr:          ":5000",
			UploadDir:     "uploads",
			VideoDir:      "videos",
			MaxUploadSize: 16 << 20,
			JobTimeout:    10 * time.Minute,
		},
	}
}

// Load overlays the YAML file at path on top of Default. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first parameter the pipeline cannot honour.
func (c Config) Validate() error {
	r := c.Render
	// yuv420p needs even dimensions
	if r.Width <= 0 || r.Height <= 0 || r.Width%2 != 0 || r.Height%2 != 0 {
		return fmt.Errorf("%w: got %dx%d", ErrBadDimensions, r.Width, r.Height)
	}
	if r.RightMargin < 0 || r.RightMargin >= r.Width {
		return fmt.Errorf("%w: margin %d, width %d", ErrBadMargin, r.RightMargin, r.Width)
	}
	if r.FontPath == "" {
		return ErrNoFont
	}
	if r.FontSize <= 0 || r.DPI <= 0 {
		return ErrBadFontSize
	}
	if c.Timing.FPS <= 0 {
		return ErrBadFPS
	}
	if c.Timing.WordDelay < 1 {
		return ErrBadWordDelay
	}
	if c.Mux.VideoCodec == "" || c.Mux.AudioCodec == "" {
		return ErrBadCodec
	}
	return nil
}

// EncodeParams resolves the encoder section against the canvas and timing.
func (c Config) EncodeParams() Encode {
	e := c.Encode
	e.Width = c.Render.Width
	e.Height = c.Render.Height
	e.FPS = c.Timing.FPS
	return e
}

// FrameDuration is the wall-clock length of n frames.
func (t Timing) FrameDuration(n int) time.Duration {
	if t.FPS <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(t.FPS)
}
