package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
)

var validateFormat string

var validateCmd = &cobra.Command{
	Use:   "validate <description_file>",
	Short: "Check a description without generating",
	Long: `Parse and check a circuit description, reporting every error and
warning found: syntax, unknown component types, overlaps, placements outside
the sheet, unknown pins and net conflicts.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "auto", "description syntax: auto, block or line")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := describe.ParseFormat(validateFormat)
	if err != nil {
		return err
	}
	src, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	o, _, release, err := newOps(false)
	if err != nil {
		return err
	}
	defer release()

	res := o.Validate(cmd.Context(), ops.ValidateInput{Description: src, Format: format})
	if err := printResult(cmd, res); err != nil || asJSON {
		return err
	}

	out := res.Payload.(*ops.ValidateOutput)
	name := out.Name
	if name == "" {
		name = args[0]
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d components, %d power, %d connections, %d warnings)\n",
		name, out.Components, out.Power, out.Connections, len(res.Warnings))
	return nil
}
