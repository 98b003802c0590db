package cmd

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/config"
	"github.com/OpenTraceLab/OpenTraceSch/internal/ops"
	"github.com/OpenTraceLab/OpenTraceSch/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

var (
	// Global flags
	verbose bool
	asJSON  bool
)

// errReported marks a failure whose details were already printed.
var errReported = stderrors.New("failed")

var rootCmd = &cobra.Command{
	Use:   "ots",
	Short: "OpenTraceSch - KiCad schematic generator",
	Long: `OpenTraceSch (ots) turns plain-text circuit descriptions into KiCad
schematics (.kicad_sch) and inspects existing ones.

Examples:
  ots generate divider.txt -o divider.kicad_sch   # Generate a schematic
  ots generate --template led_blinker             # Generate from a template
  ots validate divider.yaml                       # Check a description
  ots decode board.kicad_sch                      # Summarize a schematic
  ots netlist board.kicad_sch                     # Show nets and unconnected pins
  ots report divider.txt --html                   # Validation report
  ots serve                                       # MCP tool server on stdio`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
		log.SetPrefix("[ots] ")
		if verbose {
			log.SetOutput(cmd.ErrOrStderr())
		} else {
			log.SetOutput(io.Discard)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if err != errReported {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
}

func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg, err := config.Load(config.GlobalDir(), wd)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// newOps builds the operations from the loaded configuration. The document
// store is only opened when withStore is set; release closes it.
func newOps(withStore bool) (o *ops.Ops, cfg *config.Config, release func(), err error) {
	cfg, err = loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	var st store.Store
	release = func() {}
	if withStore {
		st, err = store.Open(cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("error opening %s store: %w", cfg.StoreBackend, err)
		}
		log.Printf("using %s document store", cfg.StoreBackend)
		release = func() { st.Close() }
	}
	o, err = ops.New(cfg, st)
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return o, cfg, release, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("error reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", path, err)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints warnings and errors of a result to stderr and turns a
// failed result into errReported. With --json the result goes to stdout.
func printResult(cmd *cobra.Command, res *ops.Result) error {
	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}
	stderr := cmd.ErrOrStderr()
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	for _, e := range res.Errors {
		where := ""
		if e.Line > 0 {
			where = fmt.Sprintf(" line %d", e.Line)
			if e.Column > 0 {
				where += fmt.Sprintf(":%d", e.Column)
			}
		}
		fmt.Fprintf(stderr, "error: [%s]%s %s\n", e.Kind, where, e.Message)
	}
	if !res.Success {
		return errReported
	}
	return nil
}
