package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"neuroaid/backend/internal/engine"
	"neuroaid/backend/internal/store"
)

func newScoreCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "score [json]",
		Short: "Score a feature mapping",
		Long: `Score a feature mapping and print the prediction.

The payload is {"features": {...}, "options": {"noiseSeed": N}}. It is read from the
argument, or from stdin when the argument is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, args)
			if err == nil {
				var req engine.ScoreRequest
				if req, err = engine.ParseScoreRequest(payload); err == nil {
					return runScore(cmd, s, req)
				}
			}
			if werr := writeJSON(cmd, engine.ErrorPrediction(err, time.Now())); werr != nil {
				logrus.WithError(werr).Error("write error response")
			}
			return &InputError{Err: err}
		},
	}
}

func runScore(cmd *cobra.Command, s *settings, req engine.ScoreRequest) error {
	eng, err := s.newEngine()
	if err != nil {
		_ = writeJSON(cmd, engine.ErrorPrediction(err, time.Now()))
		return err
	}
	res := eng.Score(req)
	recordAssessment(s, func() (*store.Assessment, error) { return store.FromPrediction(res) })
	return writeJSON(cmd, res)
}

// recordAssessment persists a row when history is configured. Failures never change the response.
func recordAssessment(s *settings, build func() (*store.Assessment, error)) {
	db, err := s.openStore()
	if err != nil {
		logrus.WithError(err).Warn("assessment history unavailable")
		return
	}
	if db == nil {
		return
	}
	defer db.Close()

	row, err := build()
	if err == nil {
		err = db.SaveAssessment(row)
	}
	if err != nil {
		logrus.WithError(err).Warn("record assessment")
		return
	}
	logrus.WithFields(logrus.Fields{"id": row.ID, "kind": row.Kind}).Debug("assessment recorded")
}
