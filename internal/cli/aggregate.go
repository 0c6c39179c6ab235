package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forPelevin/panelscribe/internal/domain/aggregate"
	"github.com/forPelevin/panelscribe/internal/domain/keywords"
	"github.com/forPelevin/panelscribe/internal/export"
)

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <manifest.json>",
		Short: "Recompute per-speaker totals and keywords from a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return aggregateRun(cmd, args[0])
		},
	}
	cmd.Flags().Int("top", 10, "Keywords shown per speaker")
	cmd.Flags().Bool("json", false, "Print speaker summaries as JSON")
	return cmd
}

func aggregateRun(cmd *cobra.Command, manifest string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")
	asJSON, _ := cmd.Flags().GetBool("json")

	rep, err := export.ReadManifest(manifest)
	if err != nil {
		return err
	}
	speakers := aggregate.Aggregate(rep.Run, keywords.New(cfg.Keywords.ExtraStopwords...))

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(speakers)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPEAKER\tDURATION\tKEYWORDS")
	for _, s := range speakers {
		var kw []string
		for _, c := range keywords.Top(s.KeywordFrequency, top) {
			kw = append(kw, fmt.Sprintf("%s(%d)", c.Word, c.Count))
		}
		fmt.Fprintf(tw, "%s\t%.2fs\t%s\n", s.SpeakerID, s.TotalDurationSec, strings.Join(kw, " "))
	}
	return tw.Flush()
}
