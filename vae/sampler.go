package vae

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/latentml/vae/internal/tensor"
)

// Sampler draws latent vectors with the reparameterization trick. The noise
// source is a standard normal over an explicit seed, so runs (and tests) are
// reproducible.
type Sampler[B tensor.Backend] struct {
	normal  distuv.Normal
	backend B
}

// NewSampler creates a sampler seeded with the given value.
func NewSampler[B tensor.Backend](seed uint64, backend B) *Sampler[B] {
	return &Sampler[B]{
		normal: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
		backend: backend,
	}
}

// Eps draws a tensor of standard normal noise with the given shape.
// The draw is NOT recorded on any tape: epsilon is an input, not a
// differentiable intermediate.
func (s *Sampler[B]) Eps(shape tensor.Shape) *tensor.Tensor[B] {
	raw, err := tensor.NewRaw(shape, s.backend.Device())
	if err != nil {
		panic(fmt.Sprintf("sampler: failed to create noise tensor: %v", err))
	}

	data := raw.Data()
	for i := range data {
		data[i] = float32(s.normal.Rand())
	}

	return tensor.New(raw, s.backend)
}

// Sample draws z ~ N(mean, exp(logVar)) via reparameterization, returning
// both the latent and the raw noise used.
func (s *Sampler[B]) Sample(mean, logVar *tensor.Tensor[B]) (z, eps *tensor.Tensor[B]) {
	eps = s.Eps(mean.Shape())
	return Reparameterize(mean, logVar, eps), eps
}

// Reparameterize computes z = mean + exp(0.5*logVar) * eps from
// differentiable operations, so gradients flow to mean and logVar (but not
// into the distribution of eps). All three tensors must share a shape.
func Reparameterize[B tensor.Backend](mean, logVar, eps *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !mean.Shape().Equal(logVar.Shape()) || !mean.Shape().Equal(eps.Shape()) {
		panic(fmt.Sprintf("reparameterize: shape mismatch mean=%v logVar=%v eps=%v",
			mean.Shape(), logVar.Shape(), eps.Shape()))
	}

	std := logVar.MulScalar(0.5).Exp()
	return mean.Add(std.Mul(eps))
}
