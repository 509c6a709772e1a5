// Package server exposes the workflow over the A2A protocol: a JSON-RPC
// message/send endpoint, agent card discovery, task inspection APIs, a live
// log tail over websocket, and health/metrics surfaces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rex/internal/config"
	"rex/internal/logging"
	"rex/internal/utils"
)

// apiResponse is the envelope for the /api group.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server is the A2A HTTP server.
type Server struct {
	cfg         *config.Config
	coordinator *Coordinator
	store       *TaskStore
	health      *HealthChecker
	logger      logging.Logger
	logDir      string

	engine     *gin.Engine
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	startTime  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles the server around an already-wired coordinator.
func New(cfg *config.Config, coordinator *Coordinator, store *TaskStore, health *HealthChecker, logDir string, logger logging.Logger) *Server {
	log := logging.OrNop(logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:         cfg,
		coordinator: coordinator,
		store:       store,
		health:      health,
		logger:      log,
		logDir:      logDir,
		engine:      engine,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	// Workflow runs span minutes; only the header read gets a deadline.
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.POST("/", s.handleJSONRPC)
	s.engine.GET("/.well-known/agent.json", s.handleAgentCard)
	s.engine.GET("/.well-known/agent-card.json", s.handleAgentCard)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
	}

	s.engine.GET("/ws/tasks/:id/logs", s.handleTaskLogStream)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger logs one line per request. Probe and scrape endpoints are
// skipped so they do not drown out task traffic.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Info("%s %s -> %d (%s)", c.Request.Method, path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// Start runs the HTTP server until Stop or a listener error.
func (s *Server) Start() error {
	s.logger.Info("A2A server listening on %s", s.cfg.Addr())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	return nil
}

// Stop shuts the server down, closing websocket tails first.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// handleJSONRPC serves the A2A message/send method.
func (s *Server) handleJSONRPC(c *gin.Context) {
	var req jsonRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, errorResponse(nil, codeParseError, "Parse error"))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("message/send panicked: %v", r)
			c.JSON(http.StatusOK, errorResponse(req.ID, codeInternalError, "Internal error"))
		}
	}()

	if req.Method != methodMessageSend {
		c.JSON(http.StatusOK, errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method)))
		return
	}

	text := req.Params.firstText()
	if text == "" {
		c.JSON(http.StatusOK, errorResponse(req.ID, codeInvalidParams, "No text in message"))
		return
	}

	query, repoPath := ExtractParams(text)
	if repoPath == "" {
		guidance := "Include 'repo_path: /path/to/repo' in your message"
		c.JSON(http.StatusOK, resultResponse(req.ID, rejectedTask(guidance)))
		return
	}

	taskID := utils.NewTaskID()
	taskLog := utils.NewTaskLog(s.logDir, taskID)
	taskLog.LogDetails("A2A Request", map[string]string{
		"query": query,
		"repo":  repoPath,
	})

	answer := s.coordinator.HandleQuery(c.Request.Context(), taskID, query, repoPath)

	taskLog.Log("A2A Response sent")
	c.JSON(http.StatusOK, resultResponse(req.ID, completedTask(taskID, answer)))
}

// handleAgentCard serves the A2A discovery document.
func (s *Server) handleAgentCard(c *gin.Context) {
	c.JSON(http.StatusOK, agentCard{
		Name:               "repo_expert",
		Description:        "Repository expert using Claude Code with review/critique pattern",
		Version:            config.Version,
		ProtocolVersion:    "0.3.0",
		URL:                fmt.Sprintf("http://localhost:%d", s.cfg.Port),
		Capabilities:       map[string]any{},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []agentSkill{{
			ID:          "analyze_repo",
			Name:        "Repository Analysis",
			Description: "Analyzes repositories with validation. Include 'repo_path: /path' in query.",
			Tags:        []string{"code", "repository", "workflow"},
		}},
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// handleHealth reports aggregate readiness; 503 when any probe fails.
func (s *Server) handleHealth(c *gin.Context) {
	components := s.health.CheckAll(c.Request.Context())

	status := "ok"
	code := http.StatusOK
	for _, component := range components {
		if component.Status == HealthStatusNotReady {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, healthResponse{
		Status:     status,
		Version:    config.Version,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Timestamp:  time.Now().UTC(),
		Components: components,
	})
}

type taskListResponse struct {
	Tasks  []Task `json:"tasks"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// handleListTasks pages through recorded tasks, newest first.
func (s *Server) handleListTasks(c *gin.Context) {
	limit := parseIntParam(c.Query("limit"), 50)
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	offset := parseIntParam(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	tasks, total := s.store.List(limit, offset)
	c.JSON(http.StatusOK, apiResponse{
		Success: true,
		Data: taskListResponse{
			Tasks:  tasks,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// handleGetTask returns one task by ID.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, apiResponse{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, apiResponse{Success: true, Data: task})
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
