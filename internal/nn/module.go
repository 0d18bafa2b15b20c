// Package nn implements the neural network building blocks for the VAE:
// the Module interface, trainable Parameters, Linear, Conv2D and
// ConvTranspose2D layers, and activation modules.
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/latentml/vae/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into larger architectures; each returns its trainable
// parameters so optimizers can walk the whole model.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	// The expected input shape depends on the module type; Linear expects
	// [batch, in_features], convolutions expect [batch, channels, h, w].
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Modules without trainable
	// parameters (activations) return nil.
	Parameters() []*Parameter[B]
}
