package main

import (
	"fmt"
	"io"
	"os"

	"github.com/iurnickita/affiliatemart/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func trackCmd(a *app) *cobra.Command {
	var pageURL, pagePath string

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Capture the attribution from a storefront page and deliver it",
		Long: `Reads the page content (HTML or text) from --page ("-" for stdin),
takes the referrer code from the ?ref= parameter of --url or from the
remembered cookie and sends the order at most once.

Delivery failures are logged and saved to the fallback log; the command
itself does not fail, the storefront must not notice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readPage(cmd, pagePath)
			if err != nil {
				return err
			}

			t, store, err := a.openTracker()
			if err != nil {
				a.zaplog.Error("tracker unavailable", zap.Error(err))
				return nil
			}
			defer store.Close()

			res, err := t.Track(cmd.Context(), tracker.Page{URL: pageURL, Content: content})
			if err != nil {
				a.zaplog.Error("tracking failed", zap.String("url", pageURL), zap.Error(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL")
	cmd.Flags().StringVar(&pagePath, "page", "-", "File with the page content")
	cmd.MarkFlagRequired("url")

	return cmd
}

func readPage(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
