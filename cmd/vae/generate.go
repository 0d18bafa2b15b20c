package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/imaging"
	"github.com/latentml/vae/internal/tensor"
	"github.com/latentml/vae/vae"
)

type generateOptions struct {
	count     int
	cols      int
	scale     int
	latentDim int
	seed      int64
	walk      int
	walkRange float64
	output    string
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Decode latent samples into a PNG grid of digits",
		Long: `Sample latent vectors from the standard normal prior, decode them,
and write the digits as a PNG grid. With --walk N and a 2-dimensional
latent space, decodes a deterministic N x N sweep over the latent plane
instead of random samples.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts)
		},
	}

	cmd.Flags().IntVar(&opts.count, "count", 16, "number of digits to sample")
	cmd.Flags().IntVar(&opts.cols, "cols", 4, "grid columns")
	cmd.Flags().IntVar(&opts.scale, "scale", 4, "integer upscaling factor")
	cmd.Flags().IntVar(&opts.latentDim, "latent", 2, "latent space dimensionality")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed for latent sampling")
	cmd.Flags().IntVar(&opts.walk, "walk", 0, "decode an N x N latent plane sweep instead of sampling (latent dim must be 2)")
	cmd.Flags().Float64Var(&opts.walkRange, "walk-range", 3, "half-width of the latent sweep interval")
	cmd.Flags().StringVar(&opts.output, "out", "samples.png", "output PNG path")

	return cmd
}

func runGenerate(opts generateOptions) error {
	cfg := vae.DefaultConfig()
	cfg.LatentDim = opts.latentDim
	cfg.Seed = uint64(opts.seed)

	backend := autodiff.New(cpu.New())
	model, err := vae.New(cfg, backend)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	var digits *tensor.Tensor[*autodiff.AutodiffBackend[*cpu.CPUBackend]]
	cols := opts.cols
	switch {
	case opts.walk > 0:
		if opts.latentDim != 2 {
			return fmt.Errorf("--walk needs a 2-dimensional latent space, got %d", opts.latentDim)
		}
		z, err := latentSweep(opts.walk, opts.walkRange, backend)
		if err != nil {
			return err
		}
		digits = model.Decode(z)
		cols = opts.walk
	default:
		if opts.count < 1 {
			return fmt.Errorf("--count must be positive, got %d", opts.count)
		}
		digits = model.Generate(opts.count)
	}

	images := imaging.FromBatch(digits)
	if err := imaging.WriteGridPNG(opts.output, images, cols, opts.scale); err != nil {
		return err
	}
	fmt.Println("Wrote", opts.output)
	return nil
}

// latentSweep builds an n x n lattice of 2D latent points covering
// [-r, r] x [-r, r], row-major with the second coordinate descending so
// the rendered grid reads like a plot.
func latentSweep[B tensor.Backend](n int, r float64, backend B) (*tensor.Tensor[B], error) {
	if n < 2 {
		return nil, fmt.Errorf("--walk must be at least 2, got %d", n)
	}
	if r <= 0 {
		return nil, fmt.Errorf("--walk-range must be positive, got %v", r)
	}

	step := 2 * r / float64(n-1)
	data := make([]float32, 0, n*n*2)
	for row := 0; row < n; row++ {
		z1 := r - float64(row)*step
		for col := 0; col < n; col++ {
			z0 := -r + float64(col)*step
			data = append(data, float32(z0), float32(z1))
		}
	}
	return tensor.FromSlice(data, tensor.Shape{n * n, 2}, backend)
}
