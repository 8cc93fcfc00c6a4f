package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/gadget-go/internal/app"
	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/infrastructure/cli/helpers"
)

// NewSendCommand creates the send command
func NewSendCommand(container *app.Container) *cobra.Command {
	var (
		noWait  bool
		offline bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <command...>",
		Short: "Send a command to the gadget",
		Long: "Send a command to the gadget over the best available transport: a cached\n" +
			"answer, the remote relay, then the short-range link.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepareDispatch(cmd.Context(), container, offline); err != nil {
				return err
			}
			return sendCommand(cmd.Context(), cmd.OutOrStdout(), container, strings.Join(args, " "), noWait, timeout)
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Print the queued command and exit once it is recorded")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the remote relay and use only the short-range link")
	cmd.Flags().DurationVar(&timeout, "timeout", DefaultWaitTimeout, "How long to wait for a reply")
	return cmd
}

// prepareDispatch checks the config, opens the link and applies --offline.
func prepareDispatch(ctx context.Context, container *app.Container, offline bool) error {
	if err := container.Ready(); err != nil {
		return err
	}
	if container.Dispatcher == nil {
		return errors.New(ErrDispatcherUnavailable)
	}
	container.ConnectLink(ctx)
	if offline {
		container.GoOffline()
	}
	return nil
}

func sendCommand(ctx context.Context, out io.Writer, container *app.Container, text string, noWait bool, timeout time.Duration) error {
	ticket, err := container.Dispatcher.Submit(ctx, text)
	if err != nil {
		return err
	}
	if noWait {
		fmt.Fprintf(out, "#%d queued\n", ticket.Command.ID)
		return nil
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	spinner := helpers.NewSpinner(os.Stderr, fmt.Sprintf("waiting for #%d", ticket.Command.ID))
	spinner.Start()
	result, err := ticket.Wait(waitCtx)
	spinner.Stop()

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("no reply for #%d within %s; it stays pending and will be recorded when the transport returns", ticket.Command.ID, timeout)
	}
	if result.Command.ID != 0 {
		helpers.RenderResult(out, result)
	}
	if errors.Is(err, domain.ErrDispatchFailed) {
		return fmt.Errorf("command #%d failed", result.Command.ID)
	}
	return err
}
