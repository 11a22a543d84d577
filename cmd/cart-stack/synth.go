package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/aws-rds-cart/internal/stack"
)

type synthConfig struct {
	format string
	out    string
}

func newSynthCmd() *cobra.Command {
	var cfg synthConfig

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Render the stack as a CloudFormation template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return synth(cmd.OutOrStdout(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&cfg.format, "format", "f", "yaml", "Output format (yaml, json)")
	flags.StringVarP(&cfg.out, "out", "o", "", "Write the template to this file instead of stdout")
	return cmd
}

func synth(stdout io.Writer, cfg synthConfig) (err error) {
	s, err := buildStack()
	if err != nil {
		return err
	}

	tmpl, err := stack.Render(s)
	if err != nil {
		return err
	}

	var write func(io.Writer) error
	switch cfg.format {
	case "yaml", "yml":
		write = tmpl.WriteYAML
	case "json":
		write = tmpl.WriteJSON
	default:
		return fmt.Errorf("unsupported format %q", cfg.format)
	}

	w := stdout
	if cfg.out != "" {
		f, cerr := os.Create(cfg.out)
		if cerr != nil {
			return fmt.Errorf("could not create %s: %w", cfg.out, cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if err = write(w); err != nil {
		return err
	}

	log.Info().
		Str("stack", s.Name).
		Int("resources", len(tmpl.Resources)).
		Str("out", cfg.out).
		Msg("Template synthesized")
	return nil
}
