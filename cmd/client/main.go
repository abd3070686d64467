package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Vovarama1992/pixelforge/internal/client"
)

// BuildAPIURL подставляется при сборке: -ldflags "-X main.BuildAPIURL=https://..."
var BuildAPIURL string

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		level      string
		name       string
		outDir     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:           "pixelforge [images...]",
		Short:         "Convert images into a single PDF",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := client.LoadFiles(args)
			if err != nil {
				color.Red("✗ %v", err)
				return err
			}

			base := client.ResolveAPIURL(client.DefaultResolvers(configPath, BuildAPIURL)...)
			s := client.NewSubmitter(base, client.DirDownloader{Dir: outDir}, nil)
			s.SelectFiles(files)
			s.SetCompressionLevel(level)
			s.SetFilename(name)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = fmt.Sprintf(" Converting %d image(s) via %s", len(files), base)
			sp.Start()
			path, err := s.Submit(ctx)
			sp.Stop()

			if err != nil {
				var te *client.TransportError
				if errors.As(err, &te) {
					color.Red("✗ %s", client.UserMessage)
					fmt.Fprintln(os.Stderr, color.HiBlackString("  %v", te))
				} else {
					color.Red("✗ %v", err)
				}
				return err
			}

			info, err := os.Stat(path)
			if err == nil {
				color.Green("✓ Saved %s (%s)", path, humanize.Bytes(uint64(info.Size())))
			} else {
				color.Green("✓ Saved %s", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", client.DefaultLevel, "compression level: normal|compressed|ultra")
	cmd.Flags().StringVarP(&name, "name", "n", client.DefaultFilename, "output file name without .pdf")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to save the PDF into")
	cmd.Flags().StringVar(&configPath, "config", envOr("PIXELFORGE_CONFIG", "app-config.json"), "runtime config file with API_URL")

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
