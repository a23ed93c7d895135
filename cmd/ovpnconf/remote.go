package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ovpnconf/internal/app"
	ovpnconfAPI "ovpnconf/pkg/ovpnconf-api"

	"github.com/spf13/cobra"
)

func remoteCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a running \"ovpnconf serve\" over its socket",
	}
	cmd.AddCommand(remoteValidateCmd(opts), remoteRenderCmd(opts), remoteLogsCmd(opts))
	return cmd
}

// readRemoteIntent returns the raw intent and the instances selected from it.
func readRemoteIntent(opts *options) ([]byte, []string, error) {
	data, err := os.ReadFile(opts.intentPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read intent file: %w", err)
	}
	cfg, err := app.ParseIntent(data)
	if err != nil {
		return nil, nil, err
	}
	return data, app.SelectInstances(cfg, opts.parsedSelectors()), nil
}

func remoteValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the selected instances on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, names, err := readRemoteIntent(opts)
			if err != nil {
				return err
			}
			client := ovpnconfAPI.NewClient(opts.socketPath())

			var errs []error
			for _, name := range names {
				res, err := client.Validate(cmd.Context(), intent, name)
				if errors.Is(err, ovpnconfAPI.ErrValidation) {
					errs = append(errs, fmt.Errorf("%s: %s", name, res.Message))
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
			}
			return errors.Join(errs...)
		},
	}
}

func remoteRenderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render the selected instances on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, names, err := readRemoteIntent(opts)
			if err != nil {
				return err
			}
			client := ovpnconfAPI.NewClient(opts.socketPath())
			paths := opts.paths()
			out := cmd.OutOrStdout()

			for _, name := range names {
				res, failure, err := client.Render(cmd.Context(), intent, name)
				if errors.Is(err, ovpnconfAPI.ErrValidation) {
					return fmt.Errorf("%s: %s", name, failure.Message)
				}
				if err != nil {
					return err
				}
				if res.Deleted {
					fmt.Fprintf(out, "# %s is deleted\n", name)
					continue
				}
				writeRendered(out, paths.ConfigFile(name), res.Main)
				clients := make([]string, 0, len(res.Clients))
				for client := range res.Clients {
					clients = append(clients, client)
				}
				sort.Strings(clients)
				for _, client := range clients {
					writeRendered(out, filepath.Join(paths.CCDDir(name), client), res.Clients[client])
				}
			}
			return nil
		},
	}
}

func remoteLogsCmd(opts *options) *cobra.Command {
	var level string
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent server log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			intf := ""
			if len(opts.selectors) == 1 {
				intf = opts.selectors[0]
			}
			entries, err := ovpnconfAPI.NewClient(opts.socketPath()).Logs(cmd.Context(), level, intf, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s %s %s", e.Time, e.Level, e.Message)
				if e.Interface != "" {
					line += " interface=" + e.Interface
				}
				if e.Error != "" {
					line += " error=" + e.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Only show entries of this level")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	return cmd
}
