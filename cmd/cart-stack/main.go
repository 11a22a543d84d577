package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/aws-rds-cart/internal/stack"
)

var commonCfg struct {
	logLevel   string
	configPath string
}

func cli() int {
	var rootCmd = &cobra.Command{
		Use:           "cart-stack",
		Short:         "Build the infrastructure stack for the cart API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(commonCfg.logLevel)
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&commonCfg.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVarP(&commonCfg.configPath, "config", "c", "", "YAML file overriding the default stack properties")

	rootCmd.AddCommand(newSynthCmd())
	rootCmd.AddCommand(newGraphCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("cart-stack failed")
		return 1
	}
	return 0
}

func main() {
	os.Exit(cli())
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "cart-stack").Logger()
	return nil
}

// buildStack loads the properties and builds the linked stack.
func buildStack() (*stack.Stack, error) {
	props, err := stack.LoadProps(commonCfg.configPath)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("stack", props.StackName).
		Str("env", props.Env.String()).
		Msg("Stack properties loaded")

	return stack.New(props)
}
