package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/render"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		input  string
		output string
		maxDim int
	)
	cmd := &cobra.Command{
		Use:   "fetch -i <url|uuid> -o <file>",
		Short: "Fetch one asset and save it as an image",
		Long: `Fetch one asset, decode it at the smallest resolution that still covers
--max-dim, and save it. The output format follows the file extension.

Examples:
  j2kfetch fetch -i 89556747-24cb-43ed-920b-47caed15465f -o texture.png
  j2kfetch fetch -i https://example.com/texture.j2c -o small.jpg --max-dim 64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxDim < 0 {
				return fmt.Errorf("--max-dim must not be negative, got %d", maxDim)
			}
			url, err := resolveInput(a, input)
			if err != nil {
				return err
			}

			l := asset.NewLoader(a.newClient(nil), a.cfg.Retry.Policy())
			img, err := l.Load(cmd.Context(), url, maxDim)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", input, err)
			}
			decoded, err := img.Image()
			if err != nil {
				return fmt.Errorf("fetch %s: %w", input, err)
			}
			if err := render.Save(output, render.Fit(decoded.Pixels, maxDim)); err != nil {
				return err
			}

			if a.verbose {
				stats, _ := img.Stats()
				a.printf("url:            %s\n", url)
				a.printf("bytes fetched:  %d (complete: %t)\n", img.Len(), img.Complete())
				a.printf("dimensions:     %dx%d\n", stats.Width, stats.Height)
				a.printf("bytes/pixel:    %d\n", stats.BytesPerPixel)
				a.printf("discard levels: %d (decoded at %d)\n", stats.DiscardLevels, decoded.DiscardLevel)
				a.printf("output:         %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "asset URL or UUID")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output image file")
	cmd.Flags().IntVar(&maxDim, "max-dim", 0, "larger side of the output in pixels (0 = full resolution)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// resolveInput returns input as a URL, expanding a bare UUID against the
// configured asset server.
func resolveInput(a *app, input string) (string, error) {
	if strings.Contains(input, "://") {
		return input, nil
	}
	url, err := asset.TextureURL(a.cfg.Asset.BaseURL, a.cfg.Asset.IDParam, input)
	if err != nil {
		return "", fmt.Errorf("input must be a URL or an asset UUID: %w", err)
	}
	return url, nil
}
