package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivlev/verse2video/internal/engine"
	"github.com/ivlev/verse2video/internal/source"
	"github.com/ivlev/verse2video/internal/system"
)

// RegisterVideoRoutes registers upload and download endpoints.
func RegisterVideoRoutes(r *gin.Engine, s *Server) {
	r.POST("/create-video", s.handleCreateVideo)
	r.GET("/download/:id", s.handleDownload)
	r.GET("/get-video/:id", s.handleGetVideo)
}

// handleCreateVideo accepts a multipart form with an "audio" file and a
// "text" field, renders the video synchronously and returns its id.
func (s *Server) handleCreateVideo(c *gin.Context) {
	if s.cfg.MaxUploadSize > 0 {
		if c.Request.ContentLength > s.cfg.MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadSize)})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	}

	file, err := c.FormFile("audio")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "an audio file is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if file.Filename == "" || !isAudioExt(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported audio file %q", file.Filename)})
		return
	}

	text := c.PostForm("text")
	doc := source.Parse(text)
	if doc.LineCount() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	id := uuid.NewString()
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	audioPath := filepath.Join(s.cfg.UploadDir, id+"_audio"+ext)
	if err := c.SaveUploadedFile(file, audioPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.Remove(audioPath)

	ctx := c.Request.Context()
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	log.Printf("[*] Job %s: %d lines, audio %s (%d bytes)", id, doc.LineCount(), file.Filename, file.Size)
	res, err := s.runner.Run(ctx, doc, audioPath, s.videoPath(id))
	if err != nil {
		log.Printf("[-] Job %s failed: %v", id, err)
		c.JSON(statusFor(err), gin.H{"id": id, "error": err.Error()})
		return
	}

	warnings := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, w.Error())
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           id,
		"download_url": "/download/" + id,
		"video_url":    "/get-video/" + id,
		"frames":       res.Frames,
		"duration":     res.VideoDuration.Seconds(),
		"published_at": res.PublishedAt,
		"warnings":     warnings,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func isAudioExt(ext string) bool {
	for _, e := range system.AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// lookupVideo resolves the :id parameter to an existing video file.
func (s *Server) lookupVideo(c *gin.Context) (string, string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return "", "", false
	}
	path := s.videoPath(id.String())
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return "", "", false
	}
	return id.String(), path, true
}

func (s *Server) handleDownload(c *gin.Context) {
	id, path, ok := s.lookupVideo(c)
	if !ok {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         id,
		"size":       info.Size(),
		"created_at": info.ModTime().UTC(),
		"video_url":  "/get-video/" + id,
	})
}

func (s *Server) handleGetVideo(c *gin.Context) {
	id, path, ok := s.lookupVideo(c)
	if !ok {
		return
	}
	c.FileAttachment(path, id+"_output.mp4")
}
