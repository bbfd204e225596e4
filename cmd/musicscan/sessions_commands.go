package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"musicscan/internal/scan"
	"musicscan/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored scan sessions",
	}
	cmd.AddCommand(newSessionsListCommand(ctx))
	cmd.AddCommand(newSessionsShowCommand(ctx))
	return cmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var matchStatus string
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ListFilter{UserID: strings.TrimSpace(userID), Limit: limit}
			if strings.TrimSpace(status) != "" {
				parsed, err := scan.ParseSessionStatus(status)
				if err != nil {
					return err
				}
				filter.Status = parsed
			}
			if strings.TrimSpace(matchStatus) != "" {
				parsed, err := scan.ParseMatchStatus(matchStatus)
				if err != nil {
					return err
				}
				filter.MatchStatus = parsed
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.ListSessions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				if sessions == nil {
					sessions = []scan.SessionSummary{}
				}
				return writeJSON(cmd, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID,
					string(s.Status),
					valueOrDash(string(s.MatchStatus)),
					formatReleaseID(s.ReleaseID),
					formatScore(s.Confidence),
					valueOrDash(strings.TrimSpace(s.Artist + " - " + s.Title)),
					strconv.Itoa(s.ImageCount),
					s.CreatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Session", "Status", "Match", "Release", "Confidence", "Album", "Images", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by session status")
	cmd.Flags().StringVar(&matchStatus, "match", "", "Filter by match status")
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum sessions to show")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with its images, extractions and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			detail, err := st.GetSessionDetail(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, detail)
			}

			out := cmd.OutOrStdout()
			pairs := [][2]string{
				{"Session", detail.Session.ID},
				{"Status", string(detail.Session.Status)},
				{"User", valueOrDash(detail.Session.UserID)},
				{"Created", detail.Session.CreatedAt.Local().Format(time.DateTime)},
			}
			if detail.Result != nil {
				pairs = append(pairs,
					[2]string{"Match", string(detail.Result.Status)},
					[2]string{"Release", formatReleaseID(detail.Result.ReleaseID)},
					[2]string{"Confidence", formatScore(detail.Result.Confidence)},
					[2]string{"Artist", valueOrDash(detail.Result.Artist)},
					[2]string{"Title", valueOrDash(detail.Result.Title)},
				)
			}
			fmt.Fprintln(out, renderKeyValues(pairs))

			if len(detail.Images) > 0 {
				rows := make([][]string, 0, len(detail.Images))
				for _, image := range detail.Images {
					rows = append(rows, []string{strconv.Itoa(image.Position), string(image.Kind), image.URL})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Kind", "URL"}, rows, []columnAlignment{alignRight}))
			}
			if len(detail.Extractions) > 0 {
				rows := make([][]string, 0, len(detail.Extractions))
				for _, e := range detail.Extractions {
					rows = append(rows, []string{string(e.Field), valueOrDash(e.Value()), formatScore(e.Confidence)})
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value", "Confidence"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight}))
			}
			if detail.Result != nil && len(detail.Result.Candidates) > 0 {
				fmt.Fprintln(out, renderCandidates(detail.Result.Candidates))
			}
			return nil
		},
	}
}
