package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/imaging"
	"github.com/latentml/vae/internal/optim"
	"github.com/latentml/vae/mnist"
	"github.com/latentml/vae/train"
	"github.com/latentml/vae/vae"
)

type trainOptions struct {
	dataPath  string
	synthetic int
	epochs    int
	batchSize int
	latentDim int
	lr        float64
	optimizer string
	seed      int64
	valFrac   float64
	outDir    string
}

func newTrainCmd() *cobra.Command {
	opts := trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the VAE on MNIST images",
		Long: `Train the VAE on MNIST images from an IDX file, or on a synthetic
dataset when no file is given. After training, writes a PNG strip of
validation images next to their reconstructions and a grid of digits
sampled from the prior.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "path to an IDX image file (e.g. train-images-idx3-ubyte)")
	cmd.Flags().IntVar(&opts.synthetic, "synthetic", 512, "synthetic dataset size when --data is not given")
	cmd.Flags().IntVar(&opts.epochs, "epochs", 25, "number of training epochs")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 128, "mini-batch size")
	cmd.Flags().IntVar(&opts.latentDim, "latent", 2, "latent space dimensionality")
	cmd.Flags().Float64Var(&opts.lr, "lr", 0.001, "learning rate")
	cmd.Flags().StringVar(&opts.optimizer, "optimizer", "rmsprop", "optimizer: rmsprop or sgd")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed for latent sampling and batch shuffling")
	cmd.Flags().Float64Var(&opts.valFrac, "val-frac", 0.1, "fraction of the dataset held out for validation")
	cmd.Flags().StringVar(&opts.outDir, "out", ".", "directory for PNG previews")

	return cmd
}

func runTrain(opts trainOptions) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dataset, err := loadDataset(opts, logger)
	if err != nil {
		return err
	}
	trainSet, valSet, err := dataset.Split(1 - opts.valFrac)
	if err != nil {
		return fmt.Errorf("split dataset: %w", err)
	}

	cfg := vae.DefaultConfig()
	cfg.ImageHeight = dataset.Height()
	cfg.ImageWidth = dataset.Width()
	cfg.LatentDim = opts.latentDim
	cfg.Seed = uint64(opts.seed)

	backend := autodiff.New(cpu.New())
	model, err := vae.New(cfg, backend)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	optimizer, err := buildOptimizer(opts, model, backend)
	if err != nil {
		return err
	}

	trainer, err := train.New(model, optimizer, backend, train.Config{
		Epochs:    opts.epochs,
		BatchSize: opts.batchSize,
		Seed:      opts.seed,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("training",
		"images", trainSet.Len(), "val_images", valSet.Len(),
		"latent_dim", opts.latentDim, "optimizer", opts.optimizer)

	history, err := trainer.Fit(trainSet, valSet)
	if err != nil {
		return err
	}

	final := history.Final()
	fmt.Printf("Finished %d epochs: train loss %.4f, val loss %.4f\n",
		final.Epoch, final.TrainLoss, final.ValLoss)

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeReconstructions(opts.outDir, model, valSet, backend); err != nil {
		return err
	}
	if err := writeSamples(opts.outDir, model); err != nil {
		return err
	}
	return nil
}

func loadDataset(opts trainOptions, logger *slog.Logger) (*mnist.Dataset, error) {
	if opts.dataPath != "" {
		ds, err := mnist.LoadImages(opts.dataPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.dataPath, err)
		}
		return ds, nil
	}
	logger.Info("no --data given, using synthetic dataset", "images", opts.synthetic)
	return mnist.Synthetic(opts.synthetic, 28, 28, opts.seed), nil
}

func buildOptimizer(
	opts trainOptions,
	model *vae.VAE[*autodiff.AutodiffBackend[*cpu.CPUBackend]],
	backend *autodiff.AutodiffBackend[*cpu.CPUBackend],
) (optim.Optimizer, error) {
	switch opts.optimizer {
	case "rmsprop":
		return optim.NewRMSProp(model.Parameters(), optim.RMSPropConfig{LR: float32(opts.lr)}, backend), nil
	case "sgd":
		return optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: float32(opts.lr)}, backend), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want rmsprop or sgd)", opts.optimizer)
	}
}

// writeReconstructions renders a held-out strip: originals on the top row,
// the model's reconstructions below them.
func writeReconstructions(
	outDir string,
	model *vae.VAE[*autodiff.AutodiffBackend[*cpu.CPUBackend]],
	valSet *mnist.Dataset,
	backend *autodiff.AutodiffBackend[*cpu.CPUBackend],
) error {
	n := 8
	if valSet.Len() < n {
		n = valSet.Len()
	}
	if n == 0 {
		return nil
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	batch := mnist.Batch(valSet, indices, backend)
	recon, _, _ := model.Forward(batch)

	images := append(imaging.FromBatch(batch), imaging.FromBatch(recon)...)
	path := filepath.Join(outDir, "reconstructions.png")
	if err := imaging.WriteGridPNG(path, images, n, 4); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}

func writeSamples(
	outDir string,
	model *vae.VAE[*autodiff.AutodiffBackend[*cpu.CPUBackend]],
) error {
	samples := model.Generate(16)
	images := imaging.FromBatch(samples)

	path := filepath.Join(outDir, "samples.png")
	if err := imaging.WriteGridPNG(path, images, 4, 4); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}
