// Package train implements the mini-batch training loop for the VAE:
// fixed-epoch iteration with reshuffled batches, per-epoch validation,
// and a loss history.
package train

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/optim"
	"github.com/latentml/vae/internal/tensor"
	"github.com/latentml/vae/mnist"
	"github.com/latentml/vae/vae"
)

// Config controls the training run.
type Config struct {
	// Epochs is the fixed number of passes over the training data.
	Epochs int

	// BatchSize is the mini-batch size. The final batch of an epoch may
	// be smaller when the dataset size is not a multiple.
	BatchSize int

	// Seed seeds the shuffle RNG, making batch order reproducible.
	Seed int64
}

// DefaultConfig returns the standard training configuration.
func DefaultConfig() Config {
	return Config{
		Epochs:    25,
		BatchSize: 128,
		Seed:      1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// EpochStats records the losses of one epoch.
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	ValLoss   float64
}

// History is the per-epoch loss record of a training run.
type History struct {
	Epochs []EpochStats
}

// Final returns the stats of the last completed epoch.
func (h *History) Final() EpochStats {
	if len(h.Epochs) == 0 {
		return EpochStats{}
	}
	return h.Epochs[len(h.Epochs)-1]
}

// Trainer runs the VAE training loop. B is the inner compute backend; the
// trainer owns the autodiff wrapper so it can drive the gradient tape.
type Trainer[B tensor.Backend] struct {
	model     *vae.VAE[*autodiff.AutodiffBackend[B]]
	loss      *vae.ELBOLoss[*autodiff.AutodiffBackend[B]]
	optimizer optim.Optimizer
	backend   *autodiff.AutodiffBackend[B]
	config    Config
	logger    *slog.Logger
	rng       *rand.Rand
}

// New creates a Trainer. logger may be nil, in which case slog.Default()
// is used.
func New[B tensor.Backend](
	model *vae.VAE[*autodiff.AutodiffBackend[B]],
	optimizer optim.Optimizer,
	backend *autodiff.AutodiffBackend[B],
	config Config,
	logger *slog.Logger,
) (*Trainer[B], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Trainer[B]{
		model:     model,
		loss:      vae.NewELBOLoss[*autodiff.AutodiffBackend[B]](),
		optimizer: optimizer,
		backend:   backend,
		config:    config,
		logger:    logger,
		//nolint:gosec // math/rand for batch shuffling
		rng: rand.New(rand.NewSource(config.Seed)),
	}, nil
}

// Fit trains the model for the configured number of epochs. val may be nil
// to skip validation. A non-finite loss aborts the run with an error; the
// partial history up to that point is still returned.
func (t *Trainer[B]) Fit(trainSet, valSet *mnist.Dataset) (*History, error) {
	if trainSet == nil || trainSet.Len() == 0 {
		return nil, fmt.Errorf("training dataset is empty")
	}

	history := &History{}

	t.backend.Tape().StartRecording()
	defer t.backend.Tape().StopRecording()

	indices := make([]int, trainSet.Len())
	for i := range indices {
		indices[i] = i
	}

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		t.shuffle(indices)

		trainLoss, err := t.runEpoch(trainSet, indices)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		stats := EpochStats{Epoch: epoch, TrainLoss: trainLoss, ValLoss: math.NaN()}
		if valSet != nil && valSet.Len() > 0 {
			stats.ValLoss = t.Evaluate(valSet)
		}
		history.Epochs = append(history.Epochs, stats)

		t.logger.Info("epoch complete",
			"epoch", epoch,
			"train_loss", stats.TrainLoss,
			"val_loss", stats.ValLoss,
			"lr", t.optimizer.GetLR(),
		)

		if !isFinite(stats.ValLoss) && valSet != nil && valSet.Len() > 0 {
			return history, fmt.Errorf("epoch %d: non-finite validation loss %g", epoch, stats.ValLoss)
		}
	}

	return history, nil
}

// runEpoch trains one pass over the shuffled indices and returns the mean
// batch loss.
func (t *Trainer[B]) runEpoch(trainSet *mnist.Dataset, indices []int) (float64, error) {
	var losses []float64

	for start := 0; start < len(indices); start += t.config.BatchSize {
		end := start + t.config.BatchSize
		if end > len(indices) {
			end = len(indices)
		}

		batchLoss, err := t.step(trainSet, indices[start:end])
		if err != nil {
			return 0, err
		}
		losses = append(losses, batchLoss)
	}

	return floats.Sum(losses) / float64(len(losses)), nil
}

// step runs one optimization step on a single batch.
func (t *Trainer[B]) step(trainSet *mnist.Dataset, batchIndices []int) (float64, error) {
	t.optimizer.ZeroGrad()

	x := mnist.Batch(trainSet, batchIndices, t.backend)
	recon, mean, logVar := t.model.Forward(x)
	loss := t.loss.Forward(x, recon, mean, logVar)

	value := float64(loss.Item())
	if !isFinite(value) {
		t.logger.Error("non-finite training loss", "loss", value, "batch_size", len(batchIndices))
		return 0, fmt.Errorf("non-finite training loss %g", value)
	}

	outputGrad, err := tensor.NewRaw(loss.Shape(), t.backend.Device())
	if err != nil {
		return 0, fmt.Errorf("failed to create output gradient: %w", err)
	}
	outputGrad.Data()[0] = 1

	grads := t.backend.Tape().Backward(outputGrad, t.backend.Inner())
	t.optimizer.Step(grads)
	t.backend.Tape().Clear()

	return value, nil
}

// Evaluate computes the mean batch loss over a dataset with tape recording
// paused: no gradients, no parameter updates.
func (t *Trainer[B]) Evaluate(ds *mnist.Dataset) float64 {
	wasRecording := t.backend.Tape().IsRecording()
	t.backend.Tape().StopRecording()
	defer func() {
		if wasRecording {
			t.backend.Tape().StartRecording()
		}
	}()

	var losses []float64

	for start := 0; start < ds.Len(); start += t.config.BatchSize {
		end := start + t.config.BatchSize
		if end > ds.Len() {
			end = ds.Len()
		}

		indices := make([]int, end-start)
		for i := range indices {
			indices[i] = start + i
		}

		x := mnist.Batch(ds, indices, t.backend)
		recon, mean, logVar := t.model.Forward(x)
		loss := t.loss.Forward(x, recon, mean, logVar)

		losses = append(losses, float64(loss.Item()))
	}

	return floats.Sum(losses) / float64(len(losses))
}

// shuffle permutes the index slice in place (Fisher-Yates) with the run's
// seeded RNG, so epoch batch order is reproducible per seed.
func (t *Trainer[B]) shuffle(indices []int) {
	for i := len(indices) - 1; i > 0; i-- {
		j := t.rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
