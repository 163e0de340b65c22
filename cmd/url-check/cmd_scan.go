package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/url-verdict/internal/adapters/cache"
	"github.com/mikey/url-verdict/internal/adapters/filter"
	"github.com/mikey/url-verdict/internal/ports"
	"github.com/mikey/url-verdict/internal/utils"
)

var scanFlags struct {
	maxURLs int
}

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Classify every link found in a text file or email (stdin if no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanFlags.maxURLs, "max-urls", 50, "Maximum number of links to classify")
}

func runScan(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	text := filter.ExtractText(data)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return invoke(func(service ports.URLClassifier, texts *utils.TextProcessor, store cache.Store, logger *zap.Logger) error {
		defer stopCache(store)

		cli := filter.NewCliFilter(service, texts, nil, cmd.OutOrStdout(), scanFlags.maxURLs, logger)
		records, err := cli.ProcessText(ctx, text)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmd.PrintErrln("no links found")
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), records)
	})
}
