// Package vae implements a convolutional variational autoencoder for
// MNIST-sized images: an encoder producing a latent Gaussian posterior, a
// reparameterized sampler, a transposed-convolution decoder, and the
// negative-ELBO loss.
package vae

import "fmt"

// Config describes the model architecture.
type Config struct {
	// ImageHeight and ImageWidth are the input spatial dimensions.
	// Both must be divisible by 4 (the encoder downsamples twice by 2).
	ImageHeight int
	ImageWidth  int

	// Channels is the number of input image channels.
	Channels int

	// LatentDim is the dimensionality of the latent space.
	LatentDim int

	// HiddenDim is the width of the dense layer between the conv stack
	// and the latent heads.
	HiddenDim int

	// Seed seeds the sampler's noise source.
	Seed uint64
}

// DefaultConfig returns the standard MNIST configuration: 28x28 grayscale
// images with a 2-dimensional latent space.
func DefaultConfig() Config {
	return Config{
		ImageHeight: 28,
		ImageWidth:  28,
		Channels:    1,
		LatentDim:   2,
		HiddenDim:   16,
		Seed:        1,
	}
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	if c.ImageHeight <= 0 || c.ImageWidth <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", c.ImageHeight, c.ImageWidth)
	}
	if c.ImageHeight%4 != 0 || c.ImageWidth%4 != 0 {
		return fmt.Errorf("image dimensions must be divisible by 4, got %dx%d", c.ImageHeight, c.ImageWidth)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.LatentDim <= 0 {
		return fmt.Errorf("latent dimension must be positive, got %d", c.LatentDim)
	}
	if c.HiddenDim <= 0 {
		return fmt.Errorf("hidden dimension must be positive, got %d", c.HiddenDim)
	}
	return nil
}

// Conv channel widths of the encoder/decoder stacks.
const (
	convWidth1 = 32
	convWidth2 = 64
)

// flatSize returns the flattened feature count after the encoder's two
// stride-2 convolutions: convWidth2 * (H/4) * (W/4).
func (c Config) flatSize() int {
	return convWidth2 * (c.ImageHeight / 4) * (c.ImageWidth / 4)
}
