// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/retained"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RETAINSIM"

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "retainsim",
		Short:         "Simulate a retained renderer and report GPU upload statistics",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.String("config", "", "YAML configuration file")
	flags.String("loglevel", "warn", "Log level (debug, info, warn, error)")
	flags.String("backend", "recording", "GPU backend (recording, noop)")
	flags.Int("frames", 60, "Number of frames to run")
	flags.Int("boxes", 200, "Initial number of boxes")
	flags.Int("labels", 20, "Number of text labels")
	flags.Float64("churn", 0.1, "Fraction of boxes and labels changed per frame")
	flags.Uint64("seed", 1, "Random seed")
	flags.Int("capacity", 64, "Initial slots per group")
	flags.Int("growth", 10, "Group growth factor")
	flags.Int("atlas-dimension", 0, "Initial atlas cells per side (0 sizes it from the label vocabulary)")
	flags.Int("atlas-max", 64, "Maximum atlas cells per side")
	flags.StringSlice("font", nil, "Extra TrueType/OpenType font files")
	flags.Int("every", 1, "Print every n-th frame in the table")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return loadConfiguration(cmd, v)
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := readSimConfig(cmd.Flags())
		if err != nil {
			return err
		}
		return run(cmd.OutOrStdout(), cfg)
	}
	return cmd
}

// loadConfiguration reads the config file and environment into v and
// applies them to every flag the command line left unset.
func loadConfiguration(cmd *cobra.Command, v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		var err error
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			err = sv.Replace(v.GetStringSlice(f.Name))
		} else {
			err = f.Value.Set(v.GetString(f.Name))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("config %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func readSimConfig(flags *pflag.FlagSet) (simConfig, error) {
	var (
		cfg  simConfig
		errs []error
	)
	getInt := func(name string) int {
		n, err := flags.GetInt(name)
		errs = append(errs, err)
		return n
	}
	cfg.Frames = getInt("frames")
	cfg.Boxes = getInt("boxes")
	cfg.Labels = getInt("labels")
	cfg.Capacity = getInt("capacity")
	cfg.Growth = getInt("growth")
	cfg.AtlasDimension = getInt("atlas-dimension")
	cfg.AtlasMax = getInt("atlas-max")
	cfg.Every = getInt("every")

	var err error
	cfg.Churn, err = flags.GetFloat64("churn")
	errs = append(errs, err)
	cfg.Seed, err = flags.GetUint64("seed")
	errs = append(errs, err)
	cfg.Backend, err = flags.GetString("backend")
	errs = append(errs, err)
	cfg.Fonts, err = flags.GetStringSlice("font")
	errs = append(errs, err)
	cfg.LogLevel, err = flags.GetString("loglevel")
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

func run(out io.Writer, cfg simConfig) error {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	retained.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	defer retained.SetLogger(nil)

	h, err := newHost(cfg.Backend)
	if err != nil {
		return err
	}
	defer h.Close()

	sim, err := newSimulation(h.Adapter(), cfg)
	if err != nil {
		return err
	}
	defer sim.Close()

	pterm.Fprintln(out, pterm.DefaultSection.Sprintf("retainsim: %d frames on %s", cfg.Frames, cfg.Backend))
	res, err := sim.Run(h)
	if err != nil {
		return err
	}
	return report(out, cfg, res)
}
