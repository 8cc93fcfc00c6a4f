package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/gadget-go/internal/app"
	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/infrastructure/cli/helpers"
)

// NewListenCommand creates the listen command
func NewListenCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Receive gadget push messages and resolve pending commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.Ready(); err != nil {
				return err
			}
			if container.Push == nil {
				return errors.New(ErrPushDisabled)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listening on %s (%s), Ctrl-C to stop\n", container.Config.Push.Topic, container.Push.ClientID())
			attachPushOutput(container, out)
			return container.Reconciler.Run(ctx, container.Push)
		},
	}
}

// attachPushOutput prints resolutions and unsolicited gadget messages.
func attachPushOutput(container *app.Container, out io.Writer) {
	p := helpers.NewPalette(out)
	container.Reconciler.OnResolved = func(_ context.Context, cmd domain.Command) {
		fmt.Fprintf(out, "#%d %s %s\n  %s\n", cmd.ID, p.Status(cmd.Status), p.Muted("via push"), p.Accent(cmd.Response))
	}
	container.Reconciler.OnNotification = func(_ context.Context, ev domain.PushEvent) {
		fmt.Fprintf(out, "%s %s %s\n", p.Muted(ev.At.Format(time.Kitchen)), p.Accent("gadget:"), ev.Payload)
	}
}
