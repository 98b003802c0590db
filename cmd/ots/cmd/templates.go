package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
)

var templatesCmd = &cobra.Command{
	Use:   "templates [name]",
	Short: "List the built-in circuit templates",
	Long: `Without arguments, list the built-in templates. With a name, print the
description text of that template so it can be edited and passed to
generate.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	o, _, release, err := newOps(false)
	if err != nil {
		return err
	}
	defer release()

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		res := o.GetTemplate(cmd.Context(), ops.TemplateInput{Name: args[0]})
		if err := printResult(cmd, res); err != nil || asJSON {
			return err
		}
		fmt.Fprint(w, res.Payload.(*ops.Template).Text)
		return nil
	}

	res := o.ListTemplates(cmd.Context())
	if err := printResult(cmd, res); err != nil || asJSON {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range res.Payload.([]ops.Template) {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Description)
	}
	return tw.Flush()
}
