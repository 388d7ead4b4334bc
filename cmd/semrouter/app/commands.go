// Package app defines the semrouter CLI: serve, validate, and version
// subcommands bound through cobra and viper, mirroring the teacher's
// cmd/<binary>/app command layout.
package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/r1pc0rd/SemanticRouter/pkg/logger"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/config"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/orchestrator"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "semrouter",
	Short: "Semantic routing proxy for MCP",
}

func init() {
	rootCmd.PersistentFlags().String("config", "semrouter.yaml", "path to the config file")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// NewRootCmd returns the root cobra command for main to execute.
func NewRootCmd() *cobra.Command {
	return rootCmd
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the router, serving MCP over stdio",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.Initialize()

	cfgPath := viper.GetString("config")
	cfg, err := loadAndValidate(cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orch := orchestrator.New(cfg)
	logger.Infof("starting semrouter with %d configured upstreams", len(cfg.Upstreams))
	return orch.Run(ctx)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file without starting the router",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfgPath := viper.GetString("config")
		if _, err := loadAndValidate(cfgPath); err != nil {
			return err
		}
		fmt.Println("config is valid")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the semrouter version",
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Println(Version)
		return nil
	},
}

func loadAndValidate(path string) (*config.Config, error) {
	cfg, err := config.NewYAMLLoader(path).Load()
	if err != nil {
		return nil, err
	}

	if errs := config.NewValidator().Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			logger.Errorf("%v", e)
		}
		return nil, fmt.Errorf("config %q failed validation: %d error(s)", path, len(errs))
	}
	return cfg, nil
}
