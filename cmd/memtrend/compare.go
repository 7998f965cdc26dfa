package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vjranagit/memtrend/pkg/compare"
	"github.com/vjranagit/memtrend/pkg/store"
)

var (
	compareLabelA string
	compareLabelB string
	compareAsJSON bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <csv-a> <csv-b>",
	Short: "Compare memory growth between two recorded runs",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareLabelA, "label-a", "",
		"label for the first series (default: file name)")
	compareCmd.Flags().StringVar(&compareLabelB, "label-b", "",
		"label for the second series (default: file name)")
	compareCmd.Flags().BoolVar(&compareAsJSON, "json", false,
		"emit the full report with curves as JSON")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	pathA, pathB := args[0], args[1]

	a, err := store.Load(pathA, seriesLabel(compareLabelA, pathA))
	if err != nil {
		return err
	}
	b, err := store.Load(pathB, seriesLabel(compareLabelB, pathB))
	if err != nil {
		return err
	}

	report, err := compare.Compare(a, b)
	if err != nil {
		return err
	}

	if compareAsJSON {
		resp := struct {
			*compare.Report
			Curves [2]compare.Curve `json:"curves"`
		}{report, report.Curves()}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.AnnotationText)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s trend: %s/s\n", a.Label, fmtMB(report.TrendA.Slope))
	fmt.Fprintf(out, "%s trend: %s/s\n", b.Label, fmtMB(report.TrendB.Slope))

	return nil
}

// seriesLabel prefers the flag value, falling back to the file name
func seriesLabel(flag, path string) string {
	if flag != "" {
		return flag
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
