package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/config"
)

// app carries state shared by subcommands after the root pre-run.
type app struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "vibe-acmg",
		Short: "ACMG/AMP criteria for sequence and structural variants",
		Long: `vibe-acmg evaluates the ACMG/AMP variant classification criteria for
sequence variants and copy-number deletions/duplications, applying
ClinGen expert panel rules for the genes they cover.`,
		Example: `  vibe-acmg classify 17:7675088:C:T
  vibe-acmg classify --input variants.vcf.gz -f json -o out.jsonl
  vibe-acmg serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/"+config.FileName+")")
	pf.String("genome-build", "", "default genome build for unqualified variants: GRCh37 or GRCh38")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("no-cache", false, "disable the response cache")

	cmd.AddCommand(
		newClassifyCmd(a),
		newServeCmd(a),
		newConfigCmd(),
		newCacheCmd(a),
		newResultsCmd(a),
		newAlphaMissenseCmd(a),
		newPanelsCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads .env, the config file and flag overrides, and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	v := viper.GetViper()
	if err := config.Init(v, a.cfgFile); err != nil {
		return err
	}

	applyFlagOverrides(v, cmd.Flags())

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// applyFlagOverrides copies the global flags that were set on the command
// line into v.
func applyFlagOverrides(v *viper.Viper, flags *pflag.FlagSet) {
	for key, name := range map[string]string{
		"genome_build": "genome-build",
		"log.level":    "log-level",
	} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	if f := flags.Lookup("no-cache"); f != nil && f.Changed {
		v.Set("cache.enabled", f.Value.String() != "true")
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-acmg version %s (%s) built %s\n", version, commit, date)
		},
	}
}
