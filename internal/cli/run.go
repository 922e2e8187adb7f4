package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/dispatch"
	"github.com/ashalaginvimeo/AS-test/internal/export"
	"github.com/ashalaginvimeo/AS-test/internal/ui"
)

// clipboardWriteAll is swapped in tests
var clipboardWriteAll = clipboard.WriteAll

type runFlags struct {
	fields    []string
	inputFile string
	demo      bool
	jsonOut   bool
	copy      bool
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <tool>",
		Short: "Run one tool and print the result",
		Long: `Run one tool non-interactively.

Input comes from --field name=value pairs (use name=@path to read a file),
a JSON object via --input (use - for stdin), or the built-in --demo values.
Fields given with --field override the other sources.

Tools: prospect, call-coach, qa, outreach, objection, discovery`,
		Example: `  copilot run qa --field question="What bitrates does OTT support?"
  copilot run call-coach --field transcript=@call.txt
  copilot run outreach --demo --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := catalog.Parse(args[0])
			if err != nil {
				return err
			}
			in, err := collectInput(tool, flags, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runTool(cmd.Context(), opts, cmd.OutOrStdout(), in, flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.fields, "field", "f", nil, "input field as name=value (repeatable)")
	cmd.Flags().StringVarP(&flags.inputFile, "input", "i", "", "JSON file with the input fields, - for stdin")
	cmd.Flags().BoolVar(&flags.demo, "demo", false, "start from the demo input")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print the raw structured result as JSON")
	cmd.Flags().BoolVar(&flags.copy, "copy", false, "copy the plain-text result to the clipboard")
	return cmd
}

// collectInput merges demo values, the input file and --field pairs, in that order
func collectInput(tool catalog.Tool, flags runFlags, stdin io.Reader) (catalog.Input, error) {
	values := map[string]string{}
	if flags.demo {
		values = ui.DemoValues(tool)
	}

	if flags.inputFile != "" {
		var data []byte
		var err error
		if flags.inputFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(flags.inputFile)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		var fromFile map[string]string
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("failed to parse input %s: %w", flags.inputFile, err)
		}
		for k, v := range fromFile {
			values[k] = v
		}
	}

	for _, pair := range flags.fields {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --field %q: expected name=value", pair)
		}
		if path, isFile := strings.CutPrefix(value, "@"); isFile {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read field %s: %w", name, err)
			}
			value = string(data)
		}
		values[strings.TrimSpace(name)] = value
	}

	in, err := catalog.DecodeInput(tool, values)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(in); err != nil {
		return nil, err
	}
	return in, nil
}

func runTool(ctx context.Context, opts *rootOptions, out io.Writer, in catalog.Input, flags runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger, err := opts.logger(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	g, err := opts.buildGateway(ctx, logger, nil)
	if err != nil {
		return err
	}

	d := dispatch.New(g,
		dispatch.WithLogger(logger),
		dispatch.WithTimeout(opts.cfg.RequestTimeout),
		dispatch.WithInitialTool(in.Tool()),
	)
	defer d.Close()

	gen, err := d.Submit(ctx, in)
	if err != nil {
		return err
	}
	state, err := d.Wait(ctx, gen)
	if err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	if state.Phase != dispatch.PhaseSucceeded {
		return errors.New(state.Reason)
	}
	logger.Debug("run finished", zap.Duration("duration", state.Duration()))

	if flags.copy {
		if err := clipboardWriteAll(export.PlainText(state.Output, in)); err != nil {
			logger.Warn("clipboard copy failed", zap.Error(err))
		}
	}

	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Tool   catalog.Tool   `json:"tool"`
			Output catalog.Output `json:"output"`
		}{Tool: in.Tool(), Output: state.Output})
	}

	printf(out, "%s", renderMarkdown(export.Markdown(state.Output, in), 80))
	return nil
}

// renderMarkdown styles md for the terminal, falling back to the raw text
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}
