package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"musicscan/internal/pipeline"
)

type healthCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the database, vision model and Discogs credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checkCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			checks := make([]healthCheck, 0, 3)

			dbCheck := healthCheck{Name: "database", Detail: cfg.DatabasePath()}
			if st, err := ctx.openStore(); err != nil {
				dbCheck.Detail = err.Error()
			} else {
				if err := st.Ping(checkCtx); err != nil {
					dbCheck.Detail = err.Error()
				} else {
					dbCheck.OK = true
				}
				_ = st.Close()
			}
			checks = append(checks, dbCheck)

			discogsCheck := healthCheck{Name: "discogs", OK: cfg.HasDiscogsCredentials(), Detail: cfg.Discogs.BaseURL}
			if !discogsCheck.OK {
				discogsCheck.Detail = "set discogs.token or DISCOGS_TOKEN"
			}
			checks = append(checks, discogsCheck)

			if !skipLLM {
				llmCheck := healthCheck{Name: "llm", Detail: cfg.LLM.Provider + "/" + cfg.LLM.Model}
				vision, err := pipeline.NewVisionClient(cfg)
				if err == nil {
					err = vision.HealthCheck(checkCtx)
				}
				if err != nil {
					llmCheck.Detail = err.Error()
				} else {
					llmCheck.OK = true
				}
				checks = append(checks, llmCheck)
			}

			if ctx.wantJSON(cmd) {
				if err := writeJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(checks))
				for _, check := range checks {
					rows = append(rows, []string{check.Name, yesNo(check.OK), check.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "OK", "Detail"}, rows, nil))
			}

			for _, check := range checks {
				if !check.OK {
					return errors.New("health check failed: " + check.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Do not call the vision model")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout for the checks")
	return cmd
}
