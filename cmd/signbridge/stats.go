package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/config"
	"github.com/ayusman/signbridge/internal/store"
)

var statsJSON bool

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the stored transcripts, predictions, samples and actions",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsJSON, "json", false, "print the summary as JSON")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "database\t%s\n", st.Path())
	fmt.Fprintf(tw, "schema\t%d\n", stats.SchemaVersion)
	fmt.Fprintf(tw, "transcripts\t%d\n", stats.Transcripts)
	fmt.Fprintf(tw, "predictions\t%d\n", stats.Predictions)
	fmt.Fprintf(tw, "samples\t%d\n", stats.Samples)
	fmt.Fprintf(tw, "actions\t%d\n", stats.Actions)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(stats.Letters) == 0 {
		return nil
	}
	letters := make([]string, 0, len(stats.Letters))
	for l := range stats.Letters {
		letters = append(letters, l)
	}
	sort.Strings(letters)

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LETTER\tCOUNT")
	for _, l := range letters {
		fmt.Fprintf(tw, "%s\t%d\n", l, stats.Letters[l])
	}
	return tw.Flush()
}
