package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/gadget-go/internal/app"
	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/infrastructure/cli/helpers"
)

const replHelp = `Type a command to send it to the gadget. Meta commands:
  :history [n]  show the last n commands
  :pending      show commands awaiting a reply
  :cache        list cached responses
  :clear        drop cached responses
  :help         show this help
  :quit         leave the session`

// NewReplCommand creates the interactive session. One dispatcher serves the
// whole session, so the cooldown and response cache carry across lines.
func NewReplCommand(container *app.Container) *cobra.Command {
	var (
		offline bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive session with the gadget",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepareDispatch(cmd.Context(), container, offline); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			if container.Push != nil {
				attachPushOutput(container, out)
				go func() {
					if err := container.Reconciler.Run(ctx, container.Push); err != nil {
						container.Logger.Error("push channel stopped", err, nil)
					}
				}()
			}
			return runRepl(ctx, cmd.InOrStdin(), out, container, timeout)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the remote relay and use only the short-range link")
	cmd.Flags().DurationVar(&timeout, "timeout", DefaultWaitTimeout, "How long to wait for each reply")
	return cmd
}

func runRepl(ctx context.Context, in io.Reader, out io.Writer, container *app.Container, timeout time.Duration) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, replHelp)
	for {
		fmt.Fprint(out, ReplPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			quit, err := runMeta(ctx, out, container, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := replSend(ctx, out, container, line, timeout); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func replSend(ctx context.Context, out io.Writer, container *app.Container, text string, timeout time.Duration) error {
	ticket, err := container.Dispatcher.Submit(ctx, text)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result, err := ticket.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("#%d still pending after %s", ticket.Command.ID, timeout)
	}
	helpers.RenderResult(out, result)
	if errors.Is(err, domain.ErrDispatchFailed) {
		return nil
	}
	return err
}

func runMeta(ctx context.Context, out io.Writer, container *app.Container, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":exit", ":q":
		return true, nil
	case ":help":
		fmt.Fprintln(out, replHelp)
	case ":history":
		limit := DefaultHistoryLimit
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return false, fmt.Errorf("invalid count %q", fields[1])
			}
			limit = n
		}
		return false, listCommands(ctx, out, container, limit)
	case ":pending":
		return false, listPending(ctx, out, container)
	case ":cache":
		listCacheEntries(out, container)
	case ":clear":
		container.CacheStore.Purge()
		fmt.Fprintln(out, "Cache cleared.")
	default:
		return false, fmt.Errorf("unknown meta command %s (try :help)", fields[0])
	}
	return false, nil
}

func listCacheEntries(out io.Writer, container *app.Container) {
	entries := container.CacheStore.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoCachedResponses)
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(out, "%s | %s -> %s\n", entry.CreatedAt.Format(TimestampFormat), entry.Key, helpers.Truncate(entry.Response, 60))
	}
}
