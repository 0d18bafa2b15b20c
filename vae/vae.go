package vae

import (
	"fmt"

	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/tensor"
)

// VAE is the full variational autoencoder: encoder, sampler, and decoder.
//
// Type parameter B is the compute backend; training wraps the CPU backend in
// the autodiff decorator so forward passes record on the gradient tape.
type VAE[B tensor.Backend] struct {
	config  Config
	encoder *Encoder[B]
	decoder *Decoder[B]
	sampler *Sampler[B]
	backend B
}

// New builds a VAE from the configuration. Returns an error for invalid
// configurations.
func New[B tensor.Backend](config Config, backend B) (*VAE[B], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &VAE[B]{
		config:  config,
		encoder: NewEncoder(config, backend),
		decoder: NewDecoder(config, backend),
		sampler: NewSampler[B](config.Seed, backend),
		backend: backend,
	}, nil
}

// Config returns the model configuration.
func (v *VAE[B]) Config() Config {
	return v.config
}

// Encoder returns the encoder module.
func (v *VAE[B]) Encoder() *Encoder[B] {
	return v.encoder
}

// Decoder returns the decoder module.
func (v *VAE[B]) Decoder() *Decoder[B] {
	return v.decoder
}

// Sampler returns the latent noise sampler.
func (v *VAE[B]) Sampler() *Sampler[B] {
	return v.sampler
}

// Forward runs a full pass: encode, sample via reparameterization, decode.
// Returns the reconstruction and the posterior parameters needed by the
// loss.
func (v *VAE[B]) Forward(x *tensor.Tensor[B]) (recon, mean, logVar *tensor.Tensor[B]) {
	mean, logVar = v.encoder.Forward(x)
	z, _ := v.sampler.Sample(mean, logVar)
	recon = v.decoder.Forward(z)
	return recon, mean, logVar
}

// Encode returns the posterior parameters for a batch of images.
func (v *VAE[B]) Encode(x *tensor.Tensor[B]) (mean, logVar *tensor.Tensor[B]) {
	return v.encoder.Forward(x)
}

// Decode maps latent codes to images.
func (v *VAE[B]) Decode(z *tensor.Tensor[B]) *tensor.Tensor[B] {
	return v.decoder.Forward(z)
}

// Generate draws n latent codes from the standard normal prior and decodes
// them into images [n, channels, height, width].
func (v *VAE[B]) Generate(n int) *tensor.Tensor[B] {
	if n <= 0 {
		panic(fmt.Sprintf("generate: n must be positive, got %d", n))
	}
	z := v.sampler.Eps(tensor.Shape{n, v.config.LatentDim})
	return v.decoder.Forward(z)
}

// Parameters returns all trainable parameters of encoder and decoder.
func (v *VAE[B]) Parameters() []*nn.Parameter[B] {
	params := v.encoder.Parameters()
	return append(params, v.decoder.Parameters()...)
}
