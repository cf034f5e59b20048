package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"neuroaid/backend/internal/api"
)

func newServeCommand(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Long: `Serve the engine over HTTP.

Routes:
  GET  /api/healthz            liveness
  GET  /api/health             capability report
  GET  /api/config             engine tables
  POST /api/score              score a feature mapping
  POST /api/explain            attribute a risk score
  GET  /api/assessments        recorded history (needs --db)
  GET  /api/assessments/:id    one recorded assessment`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := s.engineConfig()
			if err != nil {
				return err
			}
			server, err := api.NewServer(api.Config{
				DBPath:           s.DBPath,
				SilentDB:         true,
				AllowedOrigins:   s.AllowedOrigins,
				Engine:           cfg,
				VisualizationDir: s.VizDir,
			})
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer server.Close()

			router, err := server.Router()
			if err != nil {
				return fmt.Errorf("configure router: %w", err)
			}
			logrus.Infof("starting cogscore backend on :%s", s.Port)
			if err := router.Run(":" + s.Port); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&s.Port, "port", s.Port, "HTTP port (env PORT)")
	cmd.Flags().StringVar(&s.VizDir, "visualization-dir", s.VizDir, "directory for chart series files (env COGSCORE_VISUALIZATION_DIR)")
	return cmd
}
