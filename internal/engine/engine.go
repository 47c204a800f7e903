package engine

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/verse2video/internal/analyzer"
	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/director"
	"github.com/ivlev/verse2video/internal/renderer"
	"github.com/ivlev/verse2video/internal/source"
	"github.com/ivlev/verse2video/internal/storage"
	"github.com/ivlev/verse2video/internal/system"
	"github.com/ivlev/verse2video/internal/video"
)

type VideoProject struct {
	Config    config.Config
	Encoder   video.VideoEncoder
	Muxer     video.Muxer
	Publisher storage.Publisher // optional
	Detector  analyzer.Detector
}

func NewVideoProject(cfg config.Config, ve video.VideoEncoder, mx video.Muxer) *VideoProject {
	det, _ := analyzer.NewDetector("ink")
	return &VideoProject{
		Config:   cfg,
		Encoder:  ve,
		Muxer:    mx,
		Detector: det,
	}
}

// Result описывает готовое видео.
type Result struct {
	OutputPath    string
	PublishedAt   string
	Frames        int
	Lines         int
	Words         int
	VideoDuration time.Duration
	AudioDuration time.Duration // ноль, если длительность аудио не удалось определить
	Warnings      []error
	Stats         Stats
}

type Stats struct {
	Workers int
	Total   time.Duration
	Render  time.Duration
	Encode  time.Duration
	Mux     time.Duration
}

// Plan шейпит doc и раскладывает последовательность кадров без рендеринга.
// Строки, которые не удалось обработать, возвращаются как предупреждения *ShapingError.
func (p *VideoProject) Plan(doc source.Document) (*director.Plan, []error) {
	d := director.NewDirector(p.Config.Timing, p.Config.EndCard)
	d.Shaping.KeepHarakat = p.Config.Render.KeepHarakat
	plan := d.Plan(doc)

	var warnings []error
	for _, s := range plan.Skipped {
		w := &ShapingError{Line: s.Line, Err: s.Err}
		log.Printf("[!] %v", w)
		warnings = append(warnings, w)
	}
	return plan, warnings
}

// Run превращает doc и аудиодорожку в видео по пути outputPath. При любой
// фатальной ошибке по outputPath ничего не остается.
func (p *VideoProject) Run(ctx context.Context, doc source.Document, audioPath, outputPath string) (*Result, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	font, err := renderer.LoadFont(p.Config.Render.FontPath)
	if err != nil {
		return nil, &RenderError{Op: "load font", Err: err}
	}

	plan, warnings := p.Plan(doc)
	res, err := p.run(ctx, font, plan, audioPath, outputPath)
	if res != nil {
		res.Warnings = append(warnings, res.Warnings...)
	}
	return res, err
}

// RunPlan рендерит план, прочитанный с диска. Тексты кадров рисуются как есть.
func (p *VideoProject) RunPlan(ctx context.Context, plan *director.Plan, audioPath, outputPath string) (*Result, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	font, err := renderer.LoadFont(p.Config.Render.FontPath)
	if err != nil {
		return nil, &RenderError{Op: "load font", Err: err}
	}
	if plan.FPS != p.Config.Timing.FPS {
		log.Printf("[!] План рассчитан на %d FPS, кодируем в %d FPS", plan.FPS, p.Config.Timing.FPS)
	}
	return p.run(ctx, font, plan, audioPath, outputPath)
}

func (p *VideoProject) run(ctx context.Context, font *renderer.Font, plan *director.Plan, audioPath, outputPath string) (*Result, error) {
	startTime := time.Now()

	if plan.WordCount() == 0 || plan.TotalFrames == 0 {
		return nil, ErrEmptyDocument
	}

	tempDir, err := os.MkdirTemp("", "verse2video_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	res := &Result{
		OutputPath:    outputPath,
		Frames:        plan.TotalFrames,
		Lines:         len(plan.Lines),
		Words:         plan.WordCount(),
		VideoDuration: p.Config.Timing.FrameDuration(plan.TotalFrames),
	}

	r := p.Config.Render
	fmt.Println("--- [PROJECT: VERSE REVEAL] ---")
	fmt.Printf("[*] Строк: %d | Слов: %d | Кадров: %d (%.2fs)\n", res.Lines, res.Words, res.Frames, res.VideoDuration.Seconds())
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Шрифт: %s %.0fpt\n", r.Width, r.Height, p.Config.Timing.FPS, filepath.Base(font.Path), r.FontSize)
	fmt.Println("-------------------------------")

	silentPath := filepath.Join(tempDir, "silent.mp4")
	renderStart := time.Now()
	overflows, err := p.encodePlan(ctx, font, plan, silentPath, res)
	if err != nil {
		return nil, err
	}
	res.Stats.Encode = time.Since(renderStart) - res.Stats.Render
	for _, line := range overflows {
		w := fmt.Errorf("строка %d шире кадра и обрезана слева", line+1)
		log.Printf("[!] %v", w)
		res.Warnings = append(res.Warnings, w)
	}

	if d, err := system.GetMediaDuration(audioPath); err != nil {
		log.Printf("[!] Не удалось определить длительность аудио: %v", err)
	} else {
		res.AudioDuration = d
		if d < res.VideoDuration {
			fmt.Printf("[*] Аудио (%.2fs) короче видеоряда, видео будет обрезано\n", d.Seconds())
		}
	}

	fmt.Println("[*] Сведение аудио...")
	muxStart := time.Now()
	if err := p.Muxer.Mux(ctx, silentPath, audioPath, outputPath); err != nil {
		os.Remove(outputPath)
		return nil, &MuxError{Err: err}
	}
	res.Stats.Mux = time.Since(muxStart)

	if p.Publisher != nil {
		loc, err := p.Publisher.Publish(ctx, filepath.Base(outputPath), outputPath)
		if err != nil {
			w := fmt.Errorf("publish: %w", err)
			log.Printf("[!] %v", w)
			res.Warnings = append(res.Warnings, w)
		} else {
			res.PublishedAt = loc
			fmt.Printf("[*] Опубликовано: %s\n", loc)
		}
	}

	res.Stats.Total = time.Since(startTime)
	if p.Config.ShowStats {
		p.report(res)
	}
	fmt.Printf("[+++] Готово: %s\n", outputPath)
	return res, nil
}

type rendered struct {
	frame    *image.RGBA
	overflow bool
}

// encodePlan рендерит кадры окнами (по одному на воркер) и передает каждое окно
// в энкодер в порядке плана, записывая каждый кадр Hold раз.
// Возвращает строки, последнее состояние которых вышло за левый край.
func (p *VideoProject) encodePlan(ctx context.Context, font *renderer.Font, plan *director.Plan, path string, res *Result) ([]int, error) {
	cues := plan.Cues()
	r := p.Config.Render

	workers := system.RenderWorkers(p.Config.Workers, r.Width*r.Height*4)
	workers = min(workers, len(cues))
	res.Stats.Workers = workers

	renderers := make([]*renderer.Renderer, workers)
	for i := range renderers {
		rr, err := renderer.NewRenderer(font, r)
		if err != nil {
			return nil, &RenderError{Op: "create face", Err: err}
		}
		defer rr.Close()
		renderers[i] = rr
	}

	lastOfLine := make(map[int]int)
	for i, c := range cues {
		if c.Line >= 0 {
			lastOfLine[c.Line] = i
		}
	}

	w, err := p.Encoder.Open(ctx, path, p.Config.EncodeParams())
	if err != nil {
		return nil, &EncodeError{Op: "open", Err: err}
	}

	var renderTime time.Duration
	var overflows []int
	written := 0

	for start := 0; start < len(cues); start += workers {
		window := cues[start:min(start+workers, len(cues))]
		out := make([]rendered, len(window))

		t := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for i, cue := range window {
			rr := renderers[i]
			check := lastOfLine[cue.Line] == start+i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				var err error
				out[i], err = p.renderCue(rr, cue, check)
				return err
			})
		}
		err := g.Wait()
		renderTime += time.Since(t)
		if err != nil {
			releaseFrames(out)
			w.Abort()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &EncodeError{Op: "cancelled", Err: ctxErr}
			}
			return nil, &RenderError{Op: "draw", Err: err}
		}

		for i, cue := range window {
			for h := 0; h < cue.Hold; h++ {
				if err := ctx.Err(); err != nil {
					releaseFrames(out)
					w.Abort()
					return nil, &EncodeError{Op: "cancelled", Err: err}
				}
				if err := w.WriteFrame(out[i].frame); err != nil {
					releaseFrames(out)
					w.Abort()
					return nil, &EncodeError{Op: fmt.Sprintf("write frame %d", written), Err: err}
				}
				written++
			}
			if out[i].overflow {
				overflows = append(overflows, cue.Line)
			}
			if cue.Line >= 0 && lastOfLine[cue.Line] == start+i {
				fmt.Printf("[>] Строка %d готова: %d/%d кадров\n", cue.Line+1, written, plan.TotalFrames)
			}
		}
		releaseFrames(out)
	}

	if err := w.Close(); err != nil {
		return nil, &EncodeError{Op: "close", Err: err}
	}
	res.Stats.Render = renderTime
	return overflows, nil
}

// renderCue рисует один кадр на буфере из пула. Если check установлен, кадр
// проверяется на текст, касающийся левого края.
func (p *VideoProject) renderCue(rr *renderer.Renderer, cue director.Cue, check bool) (rendered, error) {
	if cue.Line < 0 {
		frame, err := rr.RenderEndCard(cue.Text)
		return rendered{frame: frame}, err
	}

	frame := system.GetFrame(rr.Bounds())
	rr.RenderText(cue.Text, frame)
	if !check || p.Detector == nil {
		return rendered{frame: frame}, nil
	}

	blocks, err := p.Detector.Detect(frame)
	if err != nil {
		return rendered{frame: frame}, nil
	}
	for _, b := range blocks {
		if b.Rect.Min.X <= 0 {
			return rendered{frame: frame, overflow: true}, nil
		}
	}
	return rendered{frame: frame}, nil
}

func releaseFrames(out []rendered) {
	for i := range out {
		if out[i].frame != nil {
			system.PutFrame(out[i].frame)
			out[i].frame = nil
		}
	}
}

func (p *VideoProject) report(res *Result) {
	fps := float64(res.Frames) / res.Stats.Total.Seconds()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU, %d workers): %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Muxing: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, res.Stats.Total.Seconds(), res.Stats.Workers, res.Stats.Render.Seconds(),
		res.Stats.Encode.Seconds(), res.Stats.Mux.Seconds(), fps,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Output: %s | Words: %d | Frames: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(res.OutputPath),
		res.Words,
		res.Frames,
		res.Stats.Total.Seconds(),
		res.Stats.Render.Seconds(),
		fps,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
