package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"neuroaid/backend/internal/engine"
	"neuroaid/backend/internal/render"
	"neuroaid/backend/internal/scoring"
	"neuroaid/backend/internal/store"
)

// settings is the process configuration. Environment values seed the flag defaults so flags win.
type settings struct {
	ConfigPath     string
	DBPath         string
	LogLevel       string
	Port           string
	NoiseSigma     *float64
	AllowedOrigins []string
	VizDir         string
}

func settingsFromEnv() settings {
	s := settings{
		ConfigPath: strings.TrimSpace(os.Getenv("COGSCORE_CONFIG")),
		DBPath:     strings.TrimSpace(os.Getenv("COGSCORE_DB_PATH")),
		LogLevel:   strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		Port:       strings.TrimSpace(os.Getenv("PORT")),
		VizDir:     strings.TrimSpace(os.Getenv("COGSCORE_VISUALIZATION_DIR")),
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.Port == "" {
		s.Port = "2000"
	}
	if s.VizDir == "" {
		s.VizDir = render.DefaultOutputDir
	}
	if v := strings.TrimSpace(os.Getenv("COGSCORE_NOISE_SIGMA")); v != "" {
		if sigma, err := strconv.ParseFloat(v, 64); err == nil && sigma >= 0 {
			s.NoiseSigma = &sigma
		} else {
			logrus.WithField("value", v).Warn("ignoring invalid COGSCORE_NOISE_SIGMA")
		}
	}
	if v := strings.TrimSpace(os.Getenv("COGSCORE_ALLOWED_ORIGINS")); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				s.AllowedOrigins = append(s.AllowedOrigins, origin)
			}
		}
	}
	return s
}

// engineConfig loads the YAML tables and applies environment overrides.
func (s settings) engineConfig() (scoring.Config, error) {
	cfg, err := scoring.LoadConfig(s.ConfigPath)
	if err != nil {
		return scoring.Config{}, err
	}
	if s.NoiseSigma != nil {
		cfg.NoiseSigma = *s.NoiseSigma
	}
	return cfg, nil
}

func (s settings) newEngine() (*engine.Engine, error) {
	cfg, err := s.engineConfig()
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, engine.WithRenderer(render.NewDispatcher(render.NewSeriesRenderer(), len(render.Kinds()))))
}

// openStore returns nil when history is not configured.
func (s settings) openStore() (*store.Database, error) {
	if s.DBPath == "" {
		return nil, nil
	}
	db, err := store.Open(s.DBPath, true)
	if err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}
	return db, nil
}

func configureLogging(level string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(out)
	return nil
}
