package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/gadget-go/internal/app"
	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/infrastructure/cli/helpers"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the command log",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryPendingCommand(container),
		newHistoryWatchCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
	)

	return historyCmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent commands, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCommands(cmd.Context(), cmd.OutOrStdout(), container, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max commands to show (0 for all)")
	return cmd
}

func newHistoryPendingCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List commands still waiting for an outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPending(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func newHistoryWatchCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the command log as it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchCommands(ctx, cmd.OutOrStdout(), container, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Commands shown per refresh")
	return cmd
}

func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export the command log to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := container.CommandStore
			if store == nil {
				return errors.New(ErrCommandStoreUnavailable)
			}
			if err := store.ExportJSON(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to export history to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
			return nil
		},
	}
}

func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show success rate, transports and top commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

func listCommands(ctx context.Context, out io.Writer, container *app.Container, limit int) error {
	store := container.CommandStore
	if store == nil {
		return errors.New(ErrCommandStoreUnavailable)
	}
	commands, err := store.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve commands: %w", err)
	}
	if len(commands) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}
	helpers.RenderCommands(out, commands, time.Now())
	return nil
}

func listPending(ctx context.Context, out io.Writer, container *app.Container) error {
	store := container.CommandStore
	if store == nil {
		return errors.New(ErrCommandStoreUnavailable)
	}
	commands, err := store.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve commands: %w", err)
	}
	pending := commands[:0]
	for _, cmd := range commands {
		if cmd.Status == domain.StatusPending {
			pending = append(pending, cmd)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, MsgNothingPending)
		return nil
	}
	helpers.RenderCommands(out, pending, time.Now())
	return nil
}

func watchCommands(ctx context.Context, out io.Writer, container *app.Container, limit int) error {
	store := container.CommandStore
	if store == nil {
		return errors.New(ErrCommandStoreUnavailable)
	}
	snapshots, err := store.SubscribeAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch commands: %w", err)
	}
	redraw := helpers.IsTerminal(out)
	for snapshot := range snapshots {
		if redraw {
			fmt.Fprint(out, "\033[H\033[2J")
		} else {
			fmt.Fprintln(out, "---")
		}
		if limit > 0 && len(snapshot) > limit {
			snapshot = snapshot[:limit]
		}
		if len(snapshot) == 0 {
			fmt.Fprintln(out, MsgNoHistoryRecorded)
			continue
		}
		helpers.RenderCommands(out, snapshot, time.Now())
	}
	return nil
}

func showHistoryStats(ctx context.Context, out io.Writer, container *app.Container) error {
	store := container.CommandStore
	if store == nil {
		return errors.New(ErrCommandStoreUnavailable)
	}
	commands, err := store.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(commands) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	stats := helpers.AnalyzeCommands(commands, DefaultStatsTopN)
	fmt.Fprintf(out, "Commands: %d\nSucceeded: %d\nFailed: %d\nPending: %d\nSuccess rate: %.1f%%\n",
		stats.Total, stats.Succeeded, stats.Failed, stats.Pending, stats.SuccessRate())

	fmt.Fprintln(out, "Transports:")
	transports := make([]domain.Transport, 0, len(stats.ByTransport))
	for t := range stats.ByTransport {
		transports = append(transports, t)
	}
	sort.Slice(transports, func(i, j int) bool { return transports[i] < transports[j] })
	for _, t := range transports {
		fmt.Fprintf(out, "  %s: %d\n", t, stats.ByTransport[t])
	}

	fmt.Fprintln(out, "Top commands:")
	for _, stat := range stats.Top {
		fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
	}
	return nil
}
