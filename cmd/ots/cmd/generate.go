package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
	"github.com/OpenTraceLab/OpenTraceSch/pkg/describe"
)

var (
	genFormat   string
	genTemplate string
	genOutput   string
	genSaveAs   string
)

var generateCmd = &cobra.Command{
	Use:   "generate [description_file ...]",
	Short: "Generate a schematic from a description",
	Long: `Generate a KiCad schematic from a circuit description or a template.

With one description (or - for stdin) the document is written to --output,
or to stdout. With several descriptions they are generated in parallel and
each document is written next to its description with a .kicad_sch
extension, or into the --output directory.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&genFormat, "format", "f", "auto", "description syntax: auto, block or line")
	generateCmd.Flags().StringVarP(&genTemplate, "template", "t", "", "generate a built-in template")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output file (one description) or directory (several)")
	generateCmd.Flags().StringVar(&genSaveAs, "save-as", "", "also store the document under this name")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genTemplate == "" && len(args) == 0 {
		return fmt.Errorf("a description file or --template is required")
	}
	if genTemplate != "" && len(args) > 0 {
		return fmt.Errorf("--template cannot be combined with description files")
	}
	if len(args) > 1 && genSaveAs != "" {
		return fmt.Errorf("--save-as needs a single description")
	}
	format, err := describe.ParseFormat(genFormat)
	if err != nil {
		return err
	}

	o, _, release, err := newOps(genSaveAs != "")
	if err != nil {
		return err
	}
	defer release()

	if len(args) > 1 {
		return generateBatch(cmd, o, args, format)
	}

	var res *ops.Result
	if genTemplate != "" {
		res = o.GenerateTemplate(cmd.Context(), ops.TemplateInput{Name: genTemplate, SaveAs: genSaveAs})
	} else {
		src, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		res = o.Generate(cmd.Context(), ops.GenerateInput{Description: src, Format: format, SaveAs: genSaveAs})
	}
	if err := printResult(cmd, res); err != nil || asJSON {
		return err
	}

	out := res.Payload.(*ops.GenerateOutput)
	if genOutput == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out.Schematic)
		return err
	}
	if err := os.WriteFile(genOutput, []byte(out.Schematic), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", genOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s: %d components, %d nets, %.1f%% of sheet\n",
		genOutput, out.Components, len(out.Nets), out.SheetUsage*100)
	return nil
}

func generateBatch(cmd *cobra.Command, o *ops.Ops, files []string, format describe.Format) error {
	inputs := make([]ops.GenerateInput, len(files))
	for i, f := range files {
		src, err := readInput(cmd, f)
		if err != nil {
			return err
		}
		inputs[i] = ops.GenerateInput{Description: src, Format: format}
	}

	results, err := o.GenerateBatch(cmd.Context(), inputs)
	if err != nil {
		return err
	}

	failed := 0
	stderr := cmd.ErrOrStderr()
	for i, res := range results {
		fmt.Fprintf(stderr, "%s:\n", files[i])
		if err := printResult(cmd, res); err != nil {
			failed++
			continue
		}
		if asJSON {
			continue
		}
		target := batchTarget(files[i])
		out := res.Payload.(*ops.GenerateOutput)
		if err := os.WriteFile(target, []byte(out.Schematic), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", target, err)
		}
		fmt.Fprintf(stderr, "wrote %s: %d components, %d nets\n", target, out.Components, len(out.Nets))
	}
	if failed > 0 {
		fmt.Fprintf(stderr, "%d of %d descriptions failed\n", failed, len(files))
		return errReported
	}
	return nil
}

// batchTarget names the document generated from a description file.
func batchTarget(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".kicad_sch"
	if genOutput != "" {
		return filepath.Join(genOutput, base)
	}
	return filepath.Join(filepath.Dir(file), base)
}
