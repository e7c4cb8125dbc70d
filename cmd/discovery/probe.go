package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bragidiscovery/server/internal/domain"
)

func probeCmd(opts *options) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "probe [env...]",
		Short: "Probe environments once and print the result as JSON",
		Long: "Probe every configured environment, or only the named ones, once " +
			"and print the environments response to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, envs, err := setup(opts, os.Stderr)
			if err != nil {
				return err
			}

			selected, err := selectEnvironments(envs, args)
			if err != nil {
				return err
			}

			coordinator, err := newCoordinator(cfg, envs, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			agg := coordinator.SnapshotOf(ctx, selected)
			return printResponse(cmd.OutOrStdout(), domain.NewEnvironmentsResponse(agg), compact)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on a single line")
	return cmd
}

// selectEnvironments keeps the configured environments named in names, in
// the order given. No names selects everything.
func selectEnvironments(envs []domain.EnvironmentSpec, names []string) ([]domain.EnvironmentSpec, error) {
	if len(names) == 0 {
		return envs, nil
	}

	byName := make(map[string]domain.EnvironmentSpec, len(envs))
	for _, env := range envs {
		byName[env.Name] = env
	}

	selected := make([]domain.EnvironmentSpec, 0, len(names))
	var unknown []string
	for _, name := range names {
		env, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, env)
	}

	if len(unknown) > 0 {
		known := make([]string, 0, len(envs))
		for _, env := range envs {
			known = append(known, env.Name)
		}
		return nil, fmt.Errorf("unknown environment(s) %s; configured: %s",
			strings.Join(unknown, ", "), strings.Join(known, ", "))
	}
	return selected, nil
}

func printResponse(w io.Writer, resp domain.EnvironmentsResponse, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
