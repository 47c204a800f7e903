package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ivlev/verse2video/internal/api"
	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/engine"
	"github.com/ivlev/verse2video/internal/storage"
	"github.com/ivlev/verse2video/internal/system"
	"github.com/ivlev/verse2video/internal/video"
)

var buildVersion = "dev"

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	configPtr := flag.String("config", os.Getenv("V2V_CONFIG"), "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	cfg.BuildVersion = buildVersion
	if cfg.Encode.VideoEncoder == "auto" {
		cfg.Encode.VideoEncoder = system.GetBestH264Encoder()
		cfg.Encode.Quality = system.DefaultQuality(cfg.Encode.VideoEncoder)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}

	for _, d := range []string{cfg.Server.UploadDir, cfg.Server.VideoDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			log.Fatalf("[-] Cannot create %s: %v", d, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project := engine.NewVideoProject(cfg, &video.FFmpegEncoder{}, video.NewFFmpegMuxer(cfg.Mux))
	pub, err := storage.New(ctx, cfg.Publish)
	if err != nil {
		log.Fatalf("[-] Publish setup error: %v", err)
	}
	if pub != nil {
		project.Publisher = pub
		defer pub.Close()
		log.Printf("[*] Publishing finished videos to %s bucket %q", cfg.Publish.Backend, cfg.Publish.Bucket)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(api.NewServer(cfg.Server, project)),
	}

	log.Printf("Starting API server on %s", cfg.Server.Addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /health")
	log.Println("  POST /create-video")
	log.Println("  GET  /download/:id")
	log.Println("  GET  /get-video/:id")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[*] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[!] shutdown: %v", err)
	}
}
