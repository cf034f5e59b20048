package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"neuroaid/backend/internal/engine"
	"neuroaid/backend/internal/render"
	"neuroaid/backend/internal/scoring"
	"neuroaid/backend/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath           string
	SilentDB         bool
	AllowedOrigins   []string
	Engine           scoring.Config
	VisualizationDir string
	RenderLimit      int
}

// Server wires HTTP handlers with the engine and optional history storage.
type Server struct {
	engine         *engine.Engine
	db             *store.Database
	allowedOrigins []string
	vizDir         string
}

// ErrHistoryDisabled is returned by history routes when no database is configured.
var ErrHistoryDisabled = errors.New("assessment history is disabled")

// NewServer constructs the API server. An empty DBPath disables history.
func NewServer(cfg Config) (*Server, error) {
	vizDir := cfg.VisualizationDir
	if strings.TrimSpace(vizDir) == "" {
		vizDir = render.DefaultOutputDir
	}
	limit := cfg.RenderLimit
	if limit <= 0 {
		limit = len(render.Kinds())
	}
	eng, err := engine.New(cfg.Engine, engine.WithRenderer(render.NewDispatcher(render.NewSeriesRenderer(), limit)))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	var db *store.Database
	if strings.TrimSpace(cfg.DBPath) == "" {
		logrus.Info("assessment history disabled - no database path configured")
	} else {
		db, err = store.Open(cfg.DBPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		logrus.WithField("path", cfg.DBPath).Info("assessment history enabled")
	}
	return newServer(eng, db, cfg.AllowedOrigins, vizDir), nil
}

func newServer(eng *engine.Engine, db *store.Database, origins []string, vizDir string) *Server {
	return &Server{engine: eng, db: db, allowedOrigins: origins, vizDir: vizDir}
}

// Close releases the history database, if any.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowCredentials = true
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealthz)

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/config", s.handleConfig)
		api.POST("/score", s.handleScore)
		api.POST("/explain", s.handleExplain)
		api.GET("/assessments", s.handleListAssessments)
		api.GET("/assessments/:id", s.handleGetAssessment)
	}

	return r, nil
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Health(s.db != nil))
}

func (s *Server) handleConfig(c *gin.Context) {
	cfg := s.engine.Config()
	c.JSON(http.StatusOK, ConfigResponse{
		Features:       cfg.Features,
		Weights:        cfg.Weights,
		Ranges:         cfg.Ranges,
		Models:         cfg.Models,
		Baseline:       cfg.Baseline,
		PrimaryFeature: cfg.PrimaryFeature,
		Explanations:   render.Kinds(),
	})
}

func (s *Server) handleScore(c *gin.Context) {
	body, err := c.GetRawData()
	if err == nil {
		var req engine.ScoreRequest
		if req, err = engine.ParseScoreRequest(body); err == nil {
			res := s.engine.Score(req)
			s.recordPrediction(res)
			c.JSON(http.StatusOK, res)
			return
		}
	}
	logrus.WithError(err).Warn("rejecting score request")
	c.JSON(http.StatusBadRequest, engine.ErrorPrediction(err, time.Now()))
}

func (s *Server) handleExplain(c *gin.Context) {
	body, err := c.GetRawData()
	if err == nil {
		var req engine.ExplainRequest
		if req, err = engine.ParseExplainRequest(body); err == nil {
			// Chart files always land in the server's own directory.
			req.Options.OutputPath = s.vizDir
			res := s.engine.Explain(c.Request.Context(), req)
			s.recordAttribution(res)
			c.JSON(http.StatusOK, res)
			return
		}
	}
	logrus.WithError(err).Warn("rejecting explain request")
	c.JSON(http.StatusBadRequest, engine.ErrorAttribution(err, time.Now()))
}

func (s *Server) handleListAssessments(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, ErrHistoryDisabled)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(firstNonEmpty(c.Query("page_size"), c.Query("pageSize")))
	if pageSize <= 0 {
		pageSize = 25
	}
	if pageSize > 500 {
		pageSize = 500
	}
	degraded, _ := strconv.ParseBool(c.Query("degraded"))

	rows, total, err := s.db.ListAssessments(store.AssessmentQuery{
		Kind:         strings.ToLower(strings.TrimSpace(c.Query("kind"))),
		DegradedOnly: degraded,
		Offset:       page * pageSize,
		Limit:        pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]AssessmentDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, AssessmentFromModel(row, false))
	}
	c.JSON(http.StatusOK, AssessmentsResponse{Items: items, Total: total})
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, ErrHistoryDisabled)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	row, err := s.db.GetAssessment(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, err)
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, AssessmentFromModel(*row, true))
}

// recordPrediction persists a score response. Failures are logged only.
func (s *Server) recordPrediction(res engine.PredictionResult) {
	if s.db == nil {
		return
	}
	row, err := store.FromPrediction(res)
	if err == nil {
		err = s.db.SaveAssessment(row)
	}
	if err != nil {
		logrus.WithError(err).Warn("record score assessment")
	}
}

func (s *Server) recordAttribution(res engine.AttributionResult) {
	if s.db == nil {
		return
	}
	row, err := store.FromAttribution(res)
	if err == nil {
		err = s.db.SaveAssessment(row)
	}
	if err != nil {
		logrus.WithError(err).Warn("record explain assessment")
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
