package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"qtermpi/internal/circuit"
	"qtermpi/internal/quantum"
	"qtermpi/internal/version"
)

// NewQASMCommand prints the QPE circuit for N counting qubits as OpenQASM,
// or with --check reads a QASM file back and reports its shape.
func NewQASMCommand(opts *RootOptions) *cobra.Command {
	var (
		stats bool
		check string
	)

	cmd := &cobra.Command{
		Use:   "qasm N | qasm --check FILE",
		Short: "Print the phase estimation circuit as OpenQASM 2.0",
		Args: func(cmd *cobra.Command, args []string) error {
			if check != "" {
				if len(args) > 0 {
					return NewExitError(ExitCommandError, "--check takes no qubit count")
				}
				return nil
			}
			return exactlyOneInt(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			level := opts.Verbose
			if opts.VeryVerbose {
				level = 2
			}
			logger := newLogger(cmd.ErrOrStderr(), level)

			if check != "" {
				c, err := checkQASM(cmd.OutOrStdout(), check)
				if err != nil {
					return err
				}
				logger.Info("parsed circuit", "file", check, "gates", len(c.Gates))
				if stats {
					writeStats(cmd.ErrOrStderr(), c)
				}
				return nil
			}

			n, _ := strconv.Atoi(args[0])
			c, err := circuit.BuildQPE(n)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid qubit count", err)
			}
			logger.Info("built circuit", "counting_qubits", n, "gates", len(c.Gates), "depth", c.Depth())

			if _, err := io.WriteString(cmd.OutOrStdout(), c.ToQASM()); err != nil {
				return WrapExitError(ExitFailure, "write output", err)
			}
			if stats {
				writeStats(cmd.ErrOrStderr(), c)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "print gate counts and depth to stderr")
	cmd.Flags().StringVar(&check, "check", "", "parse an OpenQASM file instead of printing one")
	return cmd
}

// checkQASM parses the file at path and prints a one-line summary to w.
func checkQASM(w io.Writer, path string) (*circuit.Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "read qasm", err)
	}
	c, err := circuit.ParseQASM(string(data))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, path, err)
	}
	if _, err := fmt.Fprintf(w, "%s: ok, %d qubits, %d gates, depth %d, %d measured\n",
		path, c.NumQubits, len(c.Gates), c.Depth(), len(c.Measured)); err != nil {
		return nil, WrapExitError(ExitFailure, "write output", err)
	}
	return c, nil
}

func writeStats(w io.Writer, c *circuit.Circuit) {
	st := newStyles(w)
	counts := c.Counts()
	kinds := make([]quantum.GateKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	fmt.Fprintln(w, st.title.Render("circuit"))
	fmt.Fprintf(w, "  %s %d\n", st.qubitLabel.Render("qubits"), c.NumQubits)
	fmt.Fprintf(w, "  %s %d\n", st.qubitLabel.Render("depth "), c.Depth())
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s %s\n", st.qubitLabel.Render(fmt.Sprintf("%-6s", k)), formatCount(counts[k]))
	}
	fmt.Fprintln(w, st.title.Render("gates per qubit"))
	for q := range c.NumQubits {
		fmt.Fprintf(w, "  %s %d\n", st.qubitLabel.Render(fmt.Sprintf("q[%d]", q)), len(c.GatesOnQubit(q)))
	}
}

func exactlyOneInt(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("accepts 1 arg, received %d", len(args)))
	}
	return maxOneInt(cmd, args)
}

// NewVersionCommand prints the resolved version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the qtermpi version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qtermpi %s\n", version.Resolve())
		},
	}
}
