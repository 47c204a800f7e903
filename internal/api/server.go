// Package api exposes the verse video pipeline over HTTP.
package api

import (
	"context"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/engine"
	"github.com/ivlev/verse2video/internal/source"
)

// Runner produces one video. *engine.VideoProject satisfies it.
type Runner interface {
	Run(ctx context.Context, doc source.Document, audioPath, outputPath string) (*engine.Result, error)
}

// Server holds what the handlers share.
type Server struct {
	cfg    config.Server
	runner Runner
}

func NewServer(cfg config.Server, runner Runner) *Server {
	return &Server{cfg: cfg, runner: runner}
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = s.cfg.MaxUploadSize

	RegisterVideoRoutes(r, s)
	RegisterHealthRoutes(r)
	return r
}

func (s *Server) videoPath(id string) string {
	return filepath.Join(s.cfg.VideoDir, id+"_output.mp4")
}
