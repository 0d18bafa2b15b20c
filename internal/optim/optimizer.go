// Package optim implements the optimization algorithms used to train the VAE.
//
// Provided optimizers:
//   - RMSProp: the training default
//   - SGD: plain stochastic gradient descent
//
// Example usage:
//
//	optimizer := optim.NewRMSProp(model.Parameters(), optim.RMSPropConfig{}, backend)
//
//	for each batch {
//	    optimizer.ZeroGrad()
//	    // ... forward pass, loss ...
//	    grads := backend.Tape().Backward(outputGrad, backend.Inner())
//	    optimizer.Step(grads)
//	}
package optim

import (
	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters in-place. Takes the
	// gradient map produced by the tape's backward pass. Parameters absent
	// from the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients. Call before each backward
	// pass to prevent accumulation across iterations.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// getGradient retrieves the gradient for a parameter from the backward map.
// Returns nil if the parameter wasn't part of the computation graph.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
