package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"musicscan/internal/api"
	"musicscan/internal/identification"
	"musicscan/internal/logging"
	"musicscan/internal/pipeline"
	"musicscan/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	var userID string
	var kinds []string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "scan <image-url> <image-url> [image-url...]",
		Short: "Identify a CD from photo URLs without the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logger := logging.NewNop()
			if verbose {
				logger, err = logging.New(logging.Options{Level: "debug", Format: cfg.Logging.Format, OutputPaths: []string{"stderr"}})
				if err != nil {
					return err
				}
			}
			components, err := pipeline.Build(cfg, st, logger)
			if err != nil {
				return err
			}

			imageKinds := make([]scan.ImageKind, 0, len(kinds))
			for _, value := range kinds {
				kind, err := scan.ParseImageKind(value)
				if err != nil {
					return err
				}
				imageKinds = append(imageKinds, kind)
			}

			outcome, err := components.Identifier.Identify(cmd.Context(), identification.Request{
				SessionID:  strings.TrimSpace(sessionID),
				UserID:     strings.TrimSpace(userID),
				ImageURLs:  args,
				ImageKinds: imageKinds,
			})
			if err != nil {
				return err
			}

			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, api.FromOutcome(outcome))
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Reprocess an existing session")
	cmd.Flags().StringVar(&userID, "user", "", "User id recorded on a new session")
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "Image kinds in order (front, back_cover, disc_hub, other)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	return cmd
}

func printOutcome(out io.Writer, outcome *scan.Outcome) {
	result := outcome.Result
	fmt.Fprintln(out, renderKeyValues([][2]string{
		{"Session", outcome.Session.ID},
		{"Status", string(result.Status)},
		{"Release", formatReleaseID(result.ReleaseID)},
		{"Confidence", formatScore(result.Confidence)},
		{"Artist", result.Artist},
		{"Title", result.Title},
		{"Label", result.Label},
		{"Year", formatYear(result.Year)},
		{"Country", result.Country},
	}))

	if len(outcome.Extractions) > 0 {
		rows := make([][]string, 0, len(outcome.Extractions))
		for _, e := range outcome.Extractions {
			rows = append(rows, []string{string(e.Field), e.RawValue, valueOrDash(e.Value()), formatScore(e.Confidence), string(e.Source)})
		}
		fmt.Fprintln(out, renderTable([]string{"Field", "Read", "Normalized", "Confidence", "Source"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
	}

	if len(result.Candidates) > 0 {
		fmt.Fprintln(out, renderCandidates(result.Candidates))
	}

	for _, guidance := range outcome.PhotoGuidance {
		fmt.Fprintf(out, "- %s: %s\n", guidance.Field, guidance.Instruction)
	}
}

func renderCandidates(candidates []scan.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			strconv.FormatInt(c.ReleaseID, 10),
			formatScore(c.Score),
			c.Title,
			c.Label,
			c.Country,
			formatYear(c.Year),
			strings.Join(c.Reasons, ", "),
		})
	}
	return renderTable([]string{"Release", "Score", "Title", "Label", "Country", "Year", "Reasons"}, rows,
		[]columnAlignment{alignRight, alignRight})
}

func formatReleaseID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func formatYear(year int) string {
	if year == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
