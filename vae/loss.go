package vae

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// BCEBackend is implemented by backends that provide the per-example
// binary cross-entropy kernel.
type BCEBackend interface {
	BCESum(probs, targets *tensor.RawTensor) *tensor.RawTensor
}

// ELBOLoss is the negative evidence lower bound: per-example reconstruction
// error plus KL divergence, averaged over the batch.
//
//	recon_n = -Σ_pixels [ t·log(p) + (1-t)·log(1-p) ]   (summed, not averaged)
//	kl_n    = -0.5·Σ_latent (1 + logVar − mean² − exp(logVar))
//	loss    = mean_n (recon_n + kl_n)
//
// The two terms are added unweighted. Every step is expressed in
// tape-recorded operations, so the tape's backward pass yields exact
// gradients for the encoder and decoder parameters.
type ELBOLoss[B tensor.Backend] struct{}

// NewELBOLoss creates the loss module.
func NewELBOLoss[B tensor.Backend]() *ELBOLoss[B] {
	return &ELBOLoss[B]{}
}

// Forward computes the scalar loss (shape [1]) for a batch.
//
//   - target: original images [N, C, H, W] with values in [0, 1]
//   - recon:  decoder probabilities [N, C, H, W] in (0, 1)
//   - mean, logVar: posterior parameters [N, latentDim]
//
// All arguments are explicit; the loss holds no captured state.
func (l *ELBOLoss[B]) Forward(target, recon, mean, logVar *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !target.Shape().Equal(recon.Shape()) {
		panic(fmt.Sprintf("elbo: target shape %v != recon shape %v", target.Shape(), recon.Shape()))
	}
	if !mean.Shape().Equal(logVar.Shape()) {
		panic(fmt.Sprintf("elbo: mean shape %v != logVar shape %v", mean.Shape(), logVar.Shape()))
	}

	perExample := l.ReconstructionTerm(target, recon).Add(l.KLTerm(mean, logVar))
	return perExample.Mean()
}

// ReconstructionTerm computes the per-example summed binary cross-entropy,
// shape [N]. Non-negative for targets in [0, 1].
func (l *ELBOLoss[B]) ReconstructionTerm(target, recon *tensor.Tensor[B]) *tensor.Tensor[B] {
	backend := recon.Backend()

	bceBackend, ok := any(backend).(BCEBackend)
	if !ok {
		panic("elbo: backend must implement BCESum (use autodiff.AutodiffBackend)")
	}

	return tensor.New(bceBackend.BCESum(recon.Raw(), target.Raw()), backend)
}

// KLTerm computes the closed-form KL divergence of the diagonal Gaussian
// posterior from the standard normal prior, per example, shape [N]:
//
//	kl_n = -0.5·Σ_d (1 + logVar − mean² − exp(logVar))
//
// Exactly zero when mean = 0 and logVar = 0.
func (l *ELBOLoss[B]) KLTerm(mean, logVar *tensor.Tensor[B]) *tensor.Tensor[B] {
	// 1 + logVar − mean² − exp(logVar), per latent dimension
	inner := logVar.AddScalar(1).Sub(mean.Mul(mean)).Sub(logVar.Exp())
	return inner.SumDim(1, false).MulScalar(-0.5)
}
