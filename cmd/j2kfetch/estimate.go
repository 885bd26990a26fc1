package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-j2kfetch/estimate"
)

func newEstimateCmd(a *app) *cobra.Command {
	var (
		maxDim        int
		width, height int
		bpp           int
	)
	cmd := &cobra.Command{
		Use:   "estimate --max-dim N [--width W --height H]",
		Short: "Print the byte budget and discard level for a size",
		Long: `Print how many leading bytes would be requested for an output of --max-dim.

Without --width and --height the image size is unknown and the initial
estimate is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxDim <= 0 {
				return fmt.Errorf("--max-dim must be positive, got %d", maxDim)
			}
			est := a.cfg.Estimate.Config()
			if bpp <= 0 {
				bpp = est.BytesPerPixel
			}

			if width == 0 && height == 0 {
				n := est.InitialReadSize(maxDim)
				if n == estimate.Unbounded {
					a.printf("initial read: unbounded\n")
				} else {
					a.printf("initial read: %d bytes\n", n)
				}
				return nil
			}
			if width <= 0 || height <= 0 {
				return fmt.Errorf("--width and --height must both be positive, got %dx%d", width, height)
			}
			a.printf("%s\n", est.ReadSize(width, height, bpp, maxDim))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDim, "max-dim", 0, "larger side of the output in pixels")
	cmd.Flags().IntVar(&width, "width", 0, "image width, if known")
	cmd.Flags().IntVar(&height, "height", 0, "image height, if known")
	cmd.Flags().IntVar(&bpp, "bpp", 0, "bytes per pixel (default from config)")
	_ = cmd.MarkFlagRequired("max-dim")
	return cmd
}
