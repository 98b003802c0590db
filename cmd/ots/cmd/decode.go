package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	chewxy "github.com/chewxy/sexp"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
)

var decodeCrossCheck bool

var decodeCmd = &cobra.Command{
	Use:   "decode <schematic.kicad_sch> [component]",
	Short: "Summarize a KiCad schematic",
	Long: `Decode a KiCad schematic and show its header, item counts, components
and nets. With a component reference only that component is shown.

--cross-check also reads the file with a generic S-expression parser and
reports whether it accepts the document, which helps to tell KiCad syntax
problems from general S-expression damage.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&decodeCrossCheck, "cross-check", false, "also parse with a generic S-expression reader")
}

func runDecode(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	o, _, release, err := newOps(false)
	if err != nil {
		return err
	}
	defer release()

	if decodeCrossCheck {
		crossCheck(cmd, text)
	}

	res := o.Decode(cmd.Context(), ops.DecodeInput{Schematic: text})
	if err := printResult(cmd, res); err != nil || asJSON {
		return err
	}

	s := res.Payload.(*ops.Summary)
	w := cmd.OutOrStdout()
	if len(args) == 2 {
		for _, c := range s.Components {
			if c.Ref == args[1] {
				showComponent(w, c)
				return nil
			}
		}
		return fmt.Errorf("component '%s' not found", args[1])
	}
	showSummary(w, s, args[0])
	return nil
}

// crossCheck reports to stderr what a generic S-expression reader makes of
// the document.
func crossCheck(cmd *cobra.Command, text string) {
	stderr := cmd.ErrOrStderr()
	roots, err := chewxy.Parse(strings.NewReader(text))
	if err != nil {
		fmt.Fprintf(stderr, "generic parser: rejected: %v\n", err)
		return
	}
	fmt.Fprintf(stderr, "generic parser: %d top-level expression(s)", len(roots))
	if len(roots) > 0 && !roots[0].IsLeaf() {
		fmt.Fprintf(stderr, ", %d leaves in the first", roots[0].LeafCount())
	}
	fmt.Fprintln(stderr)
}

func showSummary(w io.Writer, s *ops.Summary, filename string) {
	fmt.Fprintf(w, "Schematic: %s\n", filename)
	if s.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", s.Title)
	}
	fmt.Fprintf(w, "Version: %d\n", s.Version)
	fmt.Fprintf(w, "Generator: %s\n", s.Generator)
	fmt.Fprintf(w, "Paper: %s\n", s.Paper)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Statistics:")
	fmt.Fprintf(w, "  Components: %d\n", s.Counts.Components)
	fmt.Fprintf(w, "  Power symbols: %d\n", s.Counts.Power)
	fmt.Fprintf(w, "  Library symbols: %d\n", s.Counts.LibSymbols)
	fmt.Fprintf(w, "  Wires: %d\n", s.Counts.Wires)
	fmt.Fprintf(w, "  Junctions: %d\n", s.Counts.Junctions)
	fmt.Fprintf(w, "  Labels: %d\n", s.Counts.Labels)
	fmt.Fprintf(w, "  Nets: %d\n", s.Counts.Nets)
	fmt.Fprintf(w, "  Kept verbatim: %d\n", s.Counts.Opaque)
	fmt.Fprintln(w)

	if len(s.Components) > 0 {
		fmt.Fprintln(w, "Components:")

		// Group by reference prefix
		byPrefix := make(map[string][]string)
		for _, c := range s.Components {
			p := refPrefix(c.Ref)
			byPrefix[p] = append(byPrefix[p], c.Ref)
		}
		var prefixes []string
		for p := range byPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)
		for _, p := range prefixes {
			refs := byPrefix[p]
			sort.Strings(refs)
			fmt.Fprintf(w, "  %s: %s\n", p, strings.Join(refs, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(s.Nets) > 0 {
		fmt.Fprintln(w, "Nets:")
		for _, n := range s.Nets {
			fmt.Fprintf(w, "  %s: %s\n", n.Name, strings.Join(n.Endpoints, " "))
		}
	}

	if len(s.Opaque) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Unmodeled items: %s\n", strings.Join(s.Opaque, ", "))
	}
}

func showComponent(w io.Writer, c ops.ComponentInfo) {
	fmt.Fprintf(w, "Component: %s\n", c.Ref)
	fmt.Fprintf(w, "Library: %s\n", c.LibID)
	if c.Type != "" {
		fmt.Fprintf(w, "Type: %s\n", c.Type)
	}
	if c.Value != "" {
		fmt.Fprintf(w, "Value: %s\n", c.Value)
	}
	fmt.Fprintf(w, "Position: (%.2f, %.2f)\n", c.X, c.Y)
	if c.Rotation != 0 {
		fmt.Fprintf(w, "Rotation: %d°\n", c.Rotation)
	}
	if c.Footprint != "" {
		fmt.Fprintf(w, "Footprint: %s\n", c.Footprint)
	}
	fmt.Fprintf(w, "Pins: %d\n", c.Pins)
}

// refPrefix returns the letters before the number of a reference, "#PWR"
// for "#PWR01".
func refPrefix(ref string) string {
	i := strings.IndexFunc(ref, unicode.IsDigit)
	if i <= 0 {
		return ref
	}
	return ref[:i]
}
