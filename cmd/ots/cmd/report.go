package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
)

var (
	reportHTML   bool
	reportOutput string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report <description_file|schematic.kicad_sch>",
	Short: "Write a validation report",
	Long: `Validate a description, or check an existing .kicad_sch document, and
write the findings as a Markdown report (or HTML with --html).

The command fails when the report lists errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "render the report as HTML")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file (default: stdout)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "auto", "description syntax: auto, block or line")
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := describe.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	o, _, release, err := newOps(false)
	if err != nil {
		return err
	}
	defer release()

	in := ops.ReportInput{Format: format, HTML: reportHTML}
	if strings.HasSuffix(args[0], ".kicad_sch") {
		in.Schematic = text
	} else {
		in.Description = text
	}

	res := o.Report(cmd.Context(), in)
	if asJSON {
		return printResult(cmd, res)
	}
	if !res.Success {
		return printResult(cmd, res)
	}

	out := res.Payload.(*ops.ReportOutput)
	doc := out.Markdown
	if reportHTML {
		doc = out.HTML
	}
	if reportOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), doc)
	} else if err := os.WriteFile(reportOutput, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", reportOutput, err)
	}
	if !out.Valid {
		return errReported
	}
	return nil
}
