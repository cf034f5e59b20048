package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"neuroaid/backend/internal/engine"
	"neuroaid/backend/internal/store"
)

func newExplainCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [json]",
		Short: "Attribute a risk score to the input features",
		Long: `Attribute a risk score to the input features.

The payload is {"features": {...}, "prediction": {"riskScore": R}, "options": {...}}.
When prediction.riskScore is omitted the score is computed first with the same options.
options.explanationTypes requests chart series (waterfall, bar, force, summary, dependence)
written under options.outputPath.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, args)
			if err == nil {
				var req engine.ExplainRequest
				if req, err = engine.ParseExplainRequest(payload); err == nil {
					return runExplain(cmd, s, req)
				}
			}
			if werr := writeJSON(cmd, engine.ErrorAttribution(err, time.Now())); werr != nil {
				logrus.WithError(werr).Error("write error response")
			}
			return &InputError{Err: err}
		},
	}
}

func runExplain(cmd *cobra.Command, s *settings, req engine.ExplainRequest) error {
	eng, err := s.newEngine()
	if err != nil {
		_ = writeJSON(cmd, engine.ErrorAttribution(err, time.Now()))
		return err
	}
	if req.Options.OutputPath == "" {
		req.Options.OutputPath = s.VizDir
	}
	res := eng.Explain(cmd.Context(), req)
	recordAssessment(s, func() (*store.Assessment, error) { return store.FromAttribution(res) })
	return writeJSON(cmd, res)
}
