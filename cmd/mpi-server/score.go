package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ehr/mpi/internal/platform/mpi"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score two identities against each other without a database",
		Example: `  mpi-server score \
    --a '{"first_name":"Jon","last_name":"Doe","date_of_birth":"1990-01-01"}' \
    --b '{"first_name":"John","last_name":"Doe","date_of_birth":"1990-01-01"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _ := cmd.Flags().GetString("a")
			b, _ := cmd.Flags().GetString("b")

			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			result, err := scoreIdentities(mpi.NewScorer(cfg.MPI()), a, b)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("a", "", "Incoming identity as JSON")
	cmd.Flags().String("b", "", "Candidate identity as JSON")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

func scoreIdentities(scorer *mpi.Scorer, a, b string) (mpi.MatchResult, error) {
	var incoming, candidate mpi.Identity
	if err := json.Unmarshal([]byte(a), &incoming); err != nil {
		return mpi.MatchResult{}, fmt.Errorf("parse --a: %w", err)
	}
	if err := json.Unmarshal([]byte(b), &candidate); err != nil {
		return mpi.MatchResult{}, fmt.Errorf("parse --b: %w", err)
	}
	return scorer.Score("b", incoming, candidate), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
