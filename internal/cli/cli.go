package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"techrace/internal/analysis"
)

const envPrefix = "TECHRACE"

// CLI is the command line front end of one analysis.
type CLI struct {
	analysis string
	output   io.Writer
	errOut   io.Writer
	env      []string
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	// Analysis is the name of the built-in definition the command runs.
	Analysis string
	Output   io.Writer
	Error    io.Writer
	// EnvFiles are loaded into the environment before flags are resolved.
	// Missing files are ignored.
	EnvFiles []string
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Error == nil {
		opts.Error = os.Stderr
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env"}
	}

	cli := &CLI{
		analysis: opts.Analysis,
		output:   opts.Output,
		errOut:   opts.Error,
		env:      opts.EnvFiles,
	}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// SetArgs overrides os.Args, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           cli.analysis,
		Short:         fmt.Sprintf("Run the %s comparison and write its chart and summary", cli.analysis),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cli.bind(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.run(cmd, v)
		},
	}
	cmd.SetOut(cli.output)
	cmd.SetErr(cli.errOut)

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Path to a custom analysis definition (yaml, json or toml)")
	flags.String("data-dir", "data", "Directory the input tables are resolved against")
	flags.String("out-dir", "visualizations", "Directory the chart and workbook are written to")
	flags.Bool("workbook", false, "Also export an .xlsx workbook")
	flags.Int("dpi", 0, "Override the chart resolution")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func (cli *CLI) bind(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, path := range cli.env {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v.BindPFlags(flags)
}

func (cli *CLI) run(cmd *cobra.Command, v *viper.Viper) error {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.errOut, NoColor: true}).
		Level(level).
		With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	def, err := cli.definition(v.GetString("config"))
	if err != nil {
		return err
	}

	_, err = analysis.Run(ctx, def, analysis.Options{
		DataDir:  v.GetString("data-dir"),
		OutDir:   v.GetString("out-dir"),
		Workbook: v.GetBool("workbook"),
		DPI:      v.GetInt("dpi"),
		Out:      cli.output,
	})
	if err != nil {
		return fmt.Errorf("%s analysis failed: %w", cli.analysis, err)
	}
	return nil
}

func (cli *CLI) definition(path string) (*analysis.Definition, error) {
	if path != "" {
		return analysis.LoadFile(path)
	}
	return analysis.Builtin(cli.analysis)
}
