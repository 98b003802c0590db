package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
)

var netlistCmd = &cobra.Command{
	Use:   "netlist <schematic.kicad_sch>",
	Short: "Show the nets of a KiCad schematic",
	Long: `Rebuild the nets of a KiCad schematic from its wires, junctions and
labels, and list the pins that are not connected to anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runNetlist,
}

func init() {
	rootCmd.AddCommand(netlistCmd)
}

func runNetlist(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	o, _, release, err := newOps(false)
	if err != nil {
		return err
	}
	defer release()

	res := o.ExtractNetlist(cmd.Context(), ops.DecodeInput{Schematic: text})
	if err := printResult(cmd, res); err != nil || asJSON {
		return err
	}

	out := res.Payload.(*ops.NetlistOutput)
	w := cmd.OutOrStdout()
	for _, n := range out.Nets {
		fmt.Fprintf(w, "%s: %s\n", n.Name, strings.Join(n.Endpoints, " "))
	}
	if len(out.Unconnected) > 0 {
		fmt.Fprintf(w, "unconnected: %s\n", strings.Join(out.Unconnected, " "))
	}
	return nil
}
