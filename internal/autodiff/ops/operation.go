// Package ops defines the differentiable operations recorded on the gradient
// tape during the forward pass.
//
// Each operation captures its input and output tensors when it executes and
// implements the backward pass: given the gradient of the loss with respect
// to its output, it returns the gradients with respect to each input.
package ops

import "github.com/latentml/vae/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns one gradient per input, in the same order as Inputs().
	// A nil entry means no gradient flows to that input (e.g. targets).
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
