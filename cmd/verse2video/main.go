package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/director"
	"github.com/ivlev/verse2video/internal/engine"
	"github.com/ivlev/verse2video/internal/source"
	"github.com/ivlev/verse2video/internal/storage"
	"github.com/ivlev/verse2video/internal/system"
	"github.com/ivlev/verse2video/internal/video"
)

var buildVersion = "dev"

func main() {
	dirs := []string{"input/audio", "input/text", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "YAML-конфиг (для пропущенных полей берутся значения по умолчанию)")
	textPtr := flag.String("text", "", "Файл с текстом, один стих на строку (по умолчанию: самый свежий файл в input/text/)")
	audioPtr := flag.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	fontPtr := flag.String("font", "", "TTF/OTF шрифт с арабскими глифами")
	fpsPtr := flag.Int("fps", 0, "FPS")
	delayPtr := flag.Int("word-delay", 0, "Сколько кадров слово держится до появления следующего")
	workersPtr := flag.Int("workers", -1, "Потоки рендеринга (0 - по числу CPU)")
	encoderPtr := flag.String("encoder", "", "Видеокодек для немого прохода или \"auto\" для поиска аппаратного H.264")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	endCardPtr := flag.String("end-card", "", "Текст или URL для QR-кода после последнего стиха")
	planPtr := flag.Bool("plan", false, "Записать план рендеринга в YAML и выйти без рендеринга")
	fromPlanPtr := flag.String("from-plan", "", "Рендерить готовый план вместо текста (\"latest\" берет самый свежий из output/plans)")
	harakatPtr := flag.Bool("keep-harakat", false, "Сохранять огласовки (по умолчанию удаляются)")
	statsPtr := flag.Bool("stats", false, "Вывести отчет о производительности и дописать его в benchmark.log")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = buildVersion

	if *fontPtr != "" {
		cfg.Render.FontPath = *fontPtr
	}
	if *fpsPtr > 0 {
		cfg.Timing.FPS = *fpsPtr
	}
	if *delayPtr > 0 {
		cfg.Timing.WordDelay = *delayPtr
	}
	if *workersPtr >= 0 {
		cfg.Workers = *workersPtr
	}
	if *endCardPtr != "" {
		cfg.EndCard.Content = *endCardPtr
	}
	if *harakatPtr {
		cfg.Render.KeepHarakat = true
	}
	if *statsPtr {
		cfg.ShowStats = true
	}
	if *encoderPtr != "" {
		cfg.Encode.VideoEncoder = *encoderPtr
	}
	if cfg.Encode.VideoEncoder == "auto" {
		cfg.Encode.VideoEncoder = system.GetBestH264Encoder()
		if cfg.Encode.VideoEncoder != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.Encode.VideoEncoder)
		}
		cfg.Encode.Quality = 0
	}
	if *qualityPtr > 0 {
		cfg.Encode.Quality = *qualityPtr
	}
	if cfg.Encode.Quality == 0 {
		cfg.Encode.Quality = system.DefaultQuality(cfg.Encode.VideoEncoder)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project := engine.NewVideoProject(cfg, &video.FFmpegEncoder{}, video.NewFFmpegMuxer(cfg.Mux))

	if *fromPlanPtr != "" {
		if *planPtr {
			log.Fatalf("[-] Ошибка: -plan и -from-plan нельзя использовать вместе")
		}
		planPath := *fromPlanPtr
		if planPath == "latest" {
			planPath, err = director.FindLatestPlan(director.DefaultPlanDir)
			if err != nil {
				log.Fatalf("[-] Ошибка: %v", err)
			}
		}
		plan, err := director.ReadPlan(planPath)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения плана: %v", err)
		}
		fmt.Printf("[*] Используется план: %s\n", planPath)
		runPlan(ctx, project, cfg, plan, *audioPtr, outputName(*outputPtr, planPath))
		return
	}

	textPath := *textPtr
	if textPath == "" {
		textPath, err = system.FindLatestText("input/text")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите текст в input/text/", err)
		}
		fmt.Printf("[*] Выбран текст: %s\n", textPath)
	}

	src, err := source.NewFileSource(textPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения текста: %v", err)
	}
	defer src.Close()

	if *planPtr {
		writePlan(project, src.Document)
		return
	}
	runText(ctx, project, cfg, src.Document, *audioPtr, outputName(*outputPtr, textPath))
}

func writePlan(project *engine.VideoProject, doc source.Document) {
	plan, _ := project.Plan(doc)
	path := director.GeneratePlanPath(director.DefaultPlanDir)
	os.MkdirAll(filepath.Dir(path), 0755)
	if err := director.WritePlan(plan, path); err != nil {
		log.Fatalf("[-] Ошибка записи плана: %v", err)
	}
	fmt.Printf("[+++] План сохранен: %s (%d кадров, %.2fs)\n", path, plan.TotalFrames, float64(plan.TotalFrames)/float64(plan.FPS))
}

func resolveAudio(audioPath string) string {
	if audioPath != "" {
		return audioPath
	}
	latest, err := system.FindLatestAudio("input/audio")
	if err != nil {
		log.Fatalf("[-] Ошибка: %v. Положите аудио в input/audio/", err)
	}
	fmt.Printf("[*] Выбран аудио-файл: %s\n", latest)
	return latest
}

func attachPublisher(ctx context.Context, project *engine.VideoProject, cfg config.Config) func() {
	pub, err := storage.New(ctx, cfg.Publish)
	if err != nil {
		log.Fatalf("[-] Ошибка настройки публикации: %v", err)
	}
	if pub == nil {
		return func() {}
	}
	project.Publisher = pub
	return func() { pub.Close() }
}

func runText(ctx context.Context, project *engine.VideoProject, cfg config.Config, doc source.Document, audioPath, output string) {
	audioPath = resolveAudio(audioPath)
	closePub := attachPublisher(ctx, project, cfg)
	defer closePub()

	res, err := project.Run(ctx, doc, audioPath, output)
	report(res, err)
}

func runPlan(ctx context.Context, project *engine.VideoProject, cfg config.Config, plan *director.Plan, audioPath, output string) {
	audioPath = resolveAudio(audioPath)
	closePub := attachPublisher(ctx, project, cfg)
	defer closePub()

	res, err := project.RunPlan(ctx, plan, audioPath, output)
	report(res, err)
}

func report(res *engine.Result, err error) {
	if err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}
	if len(res.Warnings) > 0 {
		fmt.Printf("[!] Завершено с предупреждениями: %d\n", len(res.Warnings))
	}
	if res.AudioDuration > 0 {
		final := min(res.VideoDuration, res.AudioDuration)
		fmt.Printf("[*] Итоговая длительность: %.2fs\n", final.Seconds())
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", res.OutputPath)
}

func outputName(output, nameSource string) string {
	if output != "" {
		return output
	}
	baseName := filepath.Base(nameSource)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}
