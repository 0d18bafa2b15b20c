package nn

import (
	"github.com/latentml/vae/internal/tensor"
)

// Parameter represents a trainable parameter: a tensor that receives a
// gradient during the backward pass. Weights and biases of layers are
// Parameters; activations and data are not.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[B]
	grad   *tensor.Tensor[B] // nil until the first backward pass
}

// NewParameter creates a new trainable parameter. The tensor should already
// be initialized; the gradient is allocated on the first backward pass.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name (e.g. "encoder.mean.weight").
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before any backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[B] {
	return p.grad
}

// SetGrad sets the gradient tensor. Called by the training loop after the
// tape's backward pass.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient. Call before each training iteration so
// gradients from previous iterations don't accumulate.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}
