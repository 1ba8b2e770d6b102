package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/asl"
	"github.com/ayusman/signbridge/internal/server/api"
)

var classifyJSON bool

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [file|-]",
		Short: "Classify a landmark set read from a JSON file or stdin",
		Long: `Reads {"landmarks": [[x, y, z], ...]} or {"points": [{"x":..,"y":..,"z":..}, ...]}
with exactly 21 points and prints the recognised letter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runClassifyCmd,
	}
	cmd.Flags().BoolVar(&classifyJSON, "json", false, "print the full result as JSON")
	return cmd
}

type classifyOutput struct {
	Letter     string       `json:"letter"`
	Confidence int          `json:"confidence"`
	Candidates []asl.Result `json:"candidates"`
	Features   asl.Features `json:"features"`
}

func runClassifyCmd(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open landmarks: %w", err)
		}
		defer f.Close()
		in = f
	}

	req, err := api.ParseLandmarks(in)
	if err != nil {
		return fmt.Errorf("decode landmarks: %w", err)
	}
	points, err := req.ToPoints()
	if err != nil {
		return err
	}
	features, err := asl.ExtractFeatures(points)
	if err != nil {
		return err
	}

	out := classifyOutput{Features: features, Candidates: asl.Candidates(features)}
	res := asl.ClassifyFeatures(features)
	out.Letter, out.Confidence = res.Letter, res.Confidence

	if classifyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d%%) %s\n", out.Letter, out.Confidence, describe(res))
	if len(out.Candidates) > 1 {
		others := make([]string, 0, len(out.Candidates)-1)
		for _, c := range out.Candidates[1:] {
			others = append(others, c.Letter)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "also matched: %s\n", strings.Join(others, " "))
	}
	return nil
}

// describe is the one-line reason for res.
func describe(res asl.Result) string {
	if res.IsUnknown() {
		return "no rule matched"
	}
	if r, ok := asl.RuleFor(res.Letter); ok {
		return r.Summary
	}
	return ""
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the letter rule table in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LETTER\tCONFIDENCE\tRULE")
			for _, r := range asl.Rules() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Letter, r.Confidence, r.Summary)
			}
			return tw.Flush()
		},
	}
}
