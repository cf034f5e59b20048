package main

import (
	"errors"

	"github.com/spf13/cobra"

	"neuroaid/backend/internal/api"
	"neuroaid/backend/internal/store"
)

func newHistoryCommand(s *settings) *cobra.Command {
	var (
		limit    int
		kind     string
		degraded bool
		id       string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := s.openStore()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("assessment history is disabled: set --db or COGSCORE_DB_PATH")
			}
			defer db.Close()

			if id != "" {
				row, err := db.GetAssessment(id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, api.AssessmentFromModel(*row, true))
			}

			rows, total, err := db.ListAssessments(store.AssessmentQuery{Kind: kind, DegradedOnly: degraded, Limit: limit})
			if err != nil {
				return err
			}
			items := make([]api.AssessmentDTO, 0, len(rows))
			for _, row := range rows {
				items = append(items, api.AssessmentFromModel(row, false))
			}
			return writeJSON(cmd, api.AssessmentsResponse{Items: items, Total: total})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind: score or explain")
	cmd.Flags().BoolVar(&degraded, "degraded", false, "only degraded assessments")
	cmd.Flags().StringVar(&id, "id", "", "show one assessment with its stored response")
	return cmd
}
