package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/gadget-go/internal/app"
	"github.com/doeshing/gadget-go/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose    bool
	ConfigPath string
}

// NewRootCmd wires the cobra root command. The returned cleanup waits for
// in-flight commands to be recorded and must run before the process exits.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, func() error, error) {
	container, err := app.BuildContainer(ctx, app.Options{
		Verbose:    opts.Verbose,
		ConfigPath: opts.ConfigPath,
	})
	if err != nil {
		return nil, nil, err
	}

	sendCmd := commands.NewSendCommand(container)

	root := &cobra.Command{
		Use:   "gadget [command...]",
		Short: "gadget - send commands to a remote device",
		Long: "gadget delivers text commands to a remote device over a cloud relay or a\n" +
			"short-range link, and records every command and its outcome.\n\n" +
			"`gadget lights on` is shorthand for `gadget send lights on`.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			// Executing sendCmd itself would restart from the root; run its
			// action with default flags instead.
			return sendCmd.RunE(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Already applied while building the container; declared for help output.
	root.PersistentFlags().BoolP("verbose", "v", opts.Verbose, "Enable debug logging")
	root.PersistentFlags().String("config", opts.ConfigPath, "Config file (default ~/.gadget/config.yaml)")

	root.AddCommand(sendCmd)
	root.AddCommand(commands.NewReplCommand(container))
	root.AddCommand(commands.NewListenCommand(container))
	root.AddCommand(commands.NewHistoryCommand(container))
	root.AddCommand(commands.NewConfigCommand(container))
	root.AddCommand(commands.NewDoctorCommand(container))
	root.AddCommand(commands.NewVersionCommand())
	return root, container.Close, nil
}
