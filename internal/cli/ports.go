package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tbrun/internal/ports"
)

// PortsOptions holds flags for the ports command.
type PortsOptions struct {
	*RootOptions
	Header string // Verilator model header instead of a CUE design
}

// PortsResult is the JSON payload of the ports command.
type PortsResult struct {
	Source string           `json:"source"`
	Ports  []ports.PortInfo `json:"ports"`
}

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PortsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ports [design.cue]",
		Short: "List the port registry of a design",
		Long: `Print the declared ports of a CUE design, in declaration order.

With --header, read the VL_IN/VL_OUT declarations of a Verilator model
header instead.

Examples:
  tbrun ports adder.cue
  tbrun ports --header obj_dir/Vtop.h --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPorts(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Header, "header", "", "read ports from a Verilator model header")

	return cmd
}

func runPorts(opts *PortsOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if (opts.Header == "") == (len(args) == 0) {
		return f.fail(ExitCommandError, ErrCodeGeneric, "give either a design file or --header", nil)
	}

	var (
		source string
		decls  []ports.PortInfo
	)
	if opts.Header != "" {
		source = opts.Header
		file, err := os.Open(opts.Header)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeNotFound, "failed to open header", err)
		}
		decls, err = ports.ParseHeader(file)
		file.Close()
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeDesignInvalid, "failed to parse header", err)
		}
	} else {
		design, err := loadDesign(args[0])
		if err != nil {
			return failLoad(f, err)
		}
		source = design.Name()
		decls = design.Ports()
	}

	reg, err := ports.NewRegistry(decls)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeDesignInvalid, "invalid port declarations", err)
	}

	if f.Format == "json" {
		return f.Success(PortsResult{Source: source, Ports: reg.Ports()})
	}

	fmt.Fprintf(f.Writer, "%s: %d input(s), %d output(s)\n", source, len(reg.Inputs()), len(reg.Outputs()))
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIR\tWIDTH")
	for _, p := range reg.Ports() {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Name, p.Direction(), p.Width)
	}
	return tw.Flush()
}
