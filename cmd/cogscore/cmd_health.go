package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"neuroaid/backend/internal/engine"
)

func newHealthCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report which optional capabilities are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, s)
		},
	}
}

func runHealth(cmd *cobra.Command, s *settings) error {
	eng, err := s.newEngine()
	if err != nil {
		if werr := writeJSON(cmd, engine.UnavailableHealth(err)); werr != nil {
			logrus.WithError(werr).Error("write health response")
		}
		return err
	}
	db, err := s.openStore()
	storage := err == nil && db != nil
	if db != nil {
		defer db.Close()
	}
	return writeJSON(cmd, eng.Health(storage))
}
