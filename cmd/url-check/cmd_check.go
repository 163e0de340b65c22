package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/url-verdict/internal/adapters/cache"
	"github.com/mikey/url-verdict/internal/adapters/filter"
	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/ports"
	"github.com/mikey/url-verdict/internal/utils"
)

var checkFlags struct {
	channel   string
	submitter string
}

var checkCmd = &cobra.Command{
	Use:   "check [url...]",
	Short: "Classify URLs given as arguments, or one per line on stdin",
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.channel, "channel", "cli", "Channel recorded on the verdict metadata")
	f.StringVar(&checkFlags.submitter, "submitter", "", "Submitter recorded on the verdict metadata")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return invoke(func(service ports.URLClassifier, texts *utils.TextProcessor, store cache.Store, logger *zap.Logger) error {
		defer stopCache(store)

		if len(args) == 0 {
			cli := filter.NewCliFilter(service, texts, cmd.InOrStdin(), cmd.OutOrStdout(), 0, logger)
			return cli.Run(ctx)
		}

		var failed error
		for _, raw := range args {
			record, err := service.ClassifyRequest(ctx, core.ClassifyRequest{
				URL: raw,
				Metadata: &core.RequestMetadata{
					Channel:   checkFlags.channel,
					Submitter: checkFlags.submitter,
				},
			})
			if err != nil {
				cmd.PrintErrf("%s: %v\n", raw, err)
				failed = errors.Join(failed, err)
				continue
			}
			if err := writeJSON(cmd.OutOrStdout(), record); err != nil {
				return err
			}
		}
		return failed
	})
}

