package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/ivlev/verse2video/internal/analyzer"
	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/director"
	"github.com/ivlev/verse2video/internal/renderer"
	"github.com/ivlev/verse2video/internal/source"
	"github.com/ivlev/verse2video/internal/system"
)

// Renders the last reveal state of every verse to PNG and reports where the
// ink landed, without touching ffmpeg.
func main() {
	configPtr := flag.String("config", "", "YAML config file")
	textPtr := flag.String("text", "", "Verse text file (default: newest file in input/text/)")
	fontPtr := flag.String("font", "", "TTF/OTF font with Arabic glyphs")
	outPtr := flag.String("out", "output/preview", "Directory for the PNG stills")
	detectorPtr := flag.String("detector", "ink", "Block detector: ink or glyph")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if *fontPtr != "" {
		cfg.Render.FontPath = *fontPtr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}

	textPath := *textPtr
	if textPath == "" {
		textPath, err = system.FindLatestText("input/text")
		if err != nil {
			log.Fatalf("[-] Error: %v", err)
		}
	}
	src, err := source.NewFileSource(textPath)
	if err != nil {
		log.Fatalf("[-] Error reading text: %v", err)
	}
	defer src.Close()

	fmt.Println("=== Verse Preview ===")
	fmt.Printf("Text: %s\nOutput: %s\n\n", textPath, *outPtr)

	font, err := renderer.LoadFont(cfg.Render.FontPath)
	if err != nil {
		log.Fatalf("[-] Font error: %v", err)
	}
	rr, err := renderer.NewRenderer(font, cfg.Render)
	if err != nil {
		log.Fatalf("[-] Renderer error: %v", err)
	}
	defer rr.Close()

	detector, err := analyzer.NewDetector(*detectorPtr)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}

	d := director.NewDirector(cfg.Timing, cfg.EndCard)
	d.Shaping.KeepHarakat = cfg.Render.KeepHarakat
	plan := d.Plan(src.Document)
	for _, s := range plan.Skipped {
		fmt.Printf("[!] line %d skipped: %s\n", s.Line+1, s.Reason)
	}
	if err := os.MkdirAll(*outPtr, 0755); err != nil {
		log.Fatalf("[-] %v", err)
	}

	right := cfg.Render.Width - cfg.Render.RightMargin
	for _, line := range plan.Lines {
		if len(line.Cues) == 0 {
			continue
		}
		last := line.Cues[len(line.Cues)-1]
		frame := system.GetFrame(rr.Bounds())
		dot := rr.RenderText(last.Text, frame)

		path := filepath.Join(*outPtr, fmt.Sprintf("line_%03d.png", line.Index+1))
		if err := savePNG(frame, path); err != nil {
			log.Fatalf("[-] %v", err)
		}

		blocks, err := detector.Detect(frame)
		if err != nil {
			log.Fatalf("[-] Detect failed: %v", err)
		}
		ink := analyzer.InkBounds(frame, 128)
		system.PutFrame(frame)

		fmt.Printf("Line %d: %d words, %d frames -> %s\n", line.Index+1, line.Words, len(line.Cues)*cfg.Timing.WordDelay, path)
		fmt.Printf("  end dot x=%d (pinned at %d), ink %v\n", dot.X.Round(), right, ink)
		for i, b := range blocks {
			fmt.Printf("  %s %d: %v\n", b.Type, i+1, b.Rect)
		}
		if ink.Min.X <= 0 && !ink.Empty() {
			fmt.Println("  [!] runs off the left edge")
		}
	}

	if plan.EndCard != nil {
		card, err := rr.RenderEndCard(plan.EndCard.Text)
		if err != nil {
			log.Fatalf("[-] End card: %v", err)
		}
		path := filepath.Join(*outPtr, "end_card.png")
		if err := savePNG(card, path); err != nil {
			log.Fatalf("[-] %v", err)
		}
		system.PutFrame(card)
		fmt.Printf("End card -> %s\n", path)
	}

	fmt.Printf("\nTotal: %d frames (%.2fs)\n", plan.TotalFrames, cfg.Timing.FrameDuration(plan.TotalFrames).Seconds())
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
