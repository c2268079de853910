package api

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"devotional-pipeline/01_plan"
	"devotional-pipeline/config"
	"devotional-pipeline/orchestrator"

	"github.com/gin-gonic/gin"
)

// Server exposes the pipeline over HTTP.
type Server struct {
	cfg    *config.Config
	runner *orchestrator.Runner
	busy   atomic.Bool // runs share one outputs tree, so only one may be in flight
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg, runner: orchestrator.New(cfg)}
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.POST("/api/intent", s.handleIntent)
	r.POST("/api/generate", s.handleGenerate)
	r.POST("/api/generate_stream", s.handleGenerate)
	r.GET("/api/outputs", s.handleListOutputs)
	r.Static("/outputs", s.cfg.Paths.Outputs)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type intentRequest struct {
	UserPrompt string `json:"user_prompt" binding:"required"`
}

// handleIntent stores the prompt a later run will pick up.
func (s *Server) handleIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := filepath.Join(s.cfg.Paths.Inputs, plan.IntentFileName)
	if err := plan.SaveIntent(path, req.UserPrompt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": path})
}

type generateRequest struct {
	Topic   string `json:"topic" binding:"required"`
	Passage string `json:"passage"`
}

// handleGenerate kicks off one full pipeline run in the background and
// returns immediately.
func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prompt := strings.TrimSpace(req.Topic)
	if passage := strings.TrimSpace(req.Passage); passage != "" {
		prompt += " " + passage
	}

	if !s.busy.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}

	if err := plan.SaveIntent(filepath.Join(s.cfg.Paths.Inputs, plan.IntentFileName), prompt); err != nil {
		s.busy.Store(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[api] 📥 Generate request: %q", prompt)
	go func() {
		defer s.busy.Store(false)
		if _, err := s.runner.Run(context.Background(), orchestrator.Options{Prompt: prompt}); err != nil {
			log.Printf("[api] ❌ Run failed: %v", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": "started", "prompt": prompt})
}

type outputEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// handleListOutputs returns the newest videos under the outputs tree,
// capped at ten.
func (s *Server) handleListOutputs(c *gin.Context) {
	root := s.cfg.Paths.Outputs

	type videoFile struct {
		path string
		mod  time.Time
	}
	var files []videoFile
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".mp4") {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		files = append(files, videoFile{path: path, mod: info.ModTime()})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	if len(files) > 10 {
		files = files[:10]
	}

	videos := make([]outputEntry, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f.path)
		if err != nil {
			continue
		}
		videos = append(videos, outputEntry{
			Name: filepath.Base(f.path),
			URL:  "/outputs/" + filepath.ToSlash(rel),
		})
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}
