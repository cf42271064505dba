package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tusklang/tusk-go/internal/ctyutil"
	"github.com/tusklang/tusk-go/internal/engine"
	"github.com/tusklang/tusk-go/internal/eval"
	"github.com/tusklang/tusk-go/internal/parser"
	"github.com/tusklang/tusk-go/internal/resolver"
)

// rootFlags holds the persistent engine configuration shared by every
// subcommand.
type rootFlags struct {
	logLevel  string
	logFormat string
	workers   int
	timeout   time.Duration
	cacheFile string
	dbDSN     string
	secret    string
}

// NewRootCommand builds the tsk command tree. outW receives command output;
// errW receives logs.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "tsk",
		Short:         "Parse and resolve TuskLang configuration documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Logging level: 'debug', 'info', 'warn', or 'error'.")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log output format: 'text' or 'json'.")
	root.PersistentFlags().IntVar(&flags.workers, "workers", 0, "Concurrent section evaluators. 0 uses the default.")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "Per-operator I/O timeout.")
	root.PersistentFlags().StringVar(&flags.cacheFile, "cache-file", "", "Path to a durable operator cache database.")
	root.PersistentFlags().StringVar(&flags.dbDSN, "db", "", "DSN for the @query backend.")
	root.PersistentFlags().StringVar(&flags.secret, "secret", "", "Key for @encrypt and @decrypt.")

	root.AddCommand(
		newResolveCommand(flags, outW, errW),
		newGetCommand(flags, outW, errW),
		newConvertCommand(flags, outW, errW),
		newCheckCommand(outW),
		newWatchCommand(flags, outW, errW),
	)
	return root
}

func (f *rootFlags) validate() error {
	switch strings.ToLower(f.logFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: must be 'text' or 'json'")
	}
	switch strings.ToLower(f.logLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	return nil
}

// newEngine translates flags into a running engine anchored at the
// document's directory.
func (f *rootFlags) newEngine(path string, errW io.Writer) (*engine.Engine, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		Workers:   f.workers,
		Timeout:   f.timeout,
		BaseDir:   filepath.Dir(path),
		CacheFile: f.cacheFile,
		QueryDSN:  f.dbDSN,
		SecretKey: f.secret,
		Logger:    newLogger(f.logLevel, f.logFormat, errW),
	})
}

func printWarnings(errW io.Writer, warnings []eval.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(errW, "warning: %s: %s\n", w.Path, w.Message)
	}
}

func newResolveCommand(flags *rootFlags, outW, errW io.Writer) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Evaluate a document and print the resolved value tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.newEngine(args[0], errW)
			if err != nil {
				return err
			}
			defer eng.Close()

			tree, warnings, err := eng.Load(cmd.Context(), args[0])
			printWarnings(errW, warnings)
			if err != nil {
				return err
			}
			return writeTree(outW, tree, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: 'json' or 'yaml'.")
	return cmd
}

func newGetCommand(flags *rootFlags, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "get FILE KEY",
		Short: "Evaluate a document and print one value by dotted key path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.newEngine(args[0], errW)
			if err != nil {
				return err
			}
			defer eng.Close()

			tree, warnings, err := eng.Load(cmd.Context(), args[0])
			printWarnings(errW, warnings)
			if err != nil {
				return err
			}
			v, ok := tree.Get(args[1])
			if !ok {
				return fmt.Errorf("key %q not found", args[1])
			}
			fmt.Fprintln(outW, ctyutil.Stringify(v))
			return nil
		},
	}
}

func newConvertCommand(flags *rootFlags, outW, errW io.Writer) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Evaluate a document and export it as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to != "json" && to != "yaml" {
				return fmt.Errorf("invalid --to: must be 'json' or 'yaml'")
			}
			eng, err := flags.newEngine(args[0], errW)
			if err != nil {
				return err
			}
			defer eng.Close()

			tree, warnings, err := eng.Load(cmd.Context(), args[0])
			printWarnings(errW, warnings)
			if err != nil {
				return err
			}
			return writeTree(outW, tree, to)
		},
	}
	cmd.Flags().StringVar(&to, "to", "json", "Target format: 'json' or 'yaml'.")
	return cmd
}

// newCheckCommand parses and dependency-checks a document without invoking
// any operators, so it is safe on documents with live side effects.
func newCheckCommand(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Parse documents and verify reference ordering without evaluating",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed bool
			for _, path := range args {
				if err := checkFile(path); err != nil {
					failed = true
					fmt.Fprintf(outW, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(outW, "%s: ok\n", path)
			}
			if failed {
				return fmt.Errorf("check failed")
			}
			return nil
		},
	}
}

func checkFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := parser.Parse(path, string(src))
	if err != nil {
		return err
	}
	_, err = resolver.Resolve(doc)
	return err
}

func newWatchCommand(flags *rootFlags, outW, errW io.Writer) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-evaluate a document on every change and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := flags.newEngine(args[0], errW)
			if err != nil {
				return err
			}
			defer eng.Close()

			return eng.Watch(cmd.Context(), args[0], func(tree *eval.Tree, warnings []eval.Warning, err error) {
				printWarnings(errW, warnings)
				if err != nil {
					fmt.Fprintf(errW, "error: %v\n", err)
					return
				}
				if err := writeTree(outW, tree, format); err != nil {
					fmt.Fprintf(errW, "error: %v\n", err)
				}
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: 'json' or 'yaml'.")
	return cmd
}

func writeTree(outW io.Writer, tree *eval.Tree, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(outW)
		enc.SetIndent(2)
		if err := enc.Encode(tree.Go()); err != nil {
			return err
		}
		return enc.Close()
	default:
		raw, err := tree.JSON()
		if err != nil {
			return err
		}
		var buf json.RawMessage = raw
		pretty, err := json.MarshalIndent(buf, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(outW, string(pretty))
		return err
	}
}
