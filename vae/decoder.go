package vae

import (
	"fmt"

	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/tensor"
)

// Decoder maps latent codes back to images.
//
// Architecture (NCHW):
//
//	Linear(latent → 64·H/4·W/4) → ReLU → reshape [N, 64, H/4, W/4]
//	ConvTranspose2D(64→64, 3x3, stride 2, pad 1, outPad 1) → ReLU  // → H/2,W/2
//	ConvTranspose2D(64→32, 3x3, stride 2, pad 1, outPad 1) → ReLU  // → H,W
//	Conv2D(32→C, 3x3, stride 1, pad 1) → Sigmoid
//
// The sigmoid output is in (0, 1): each pixel is a Bernoulli probability.
type Decoder[B tensor.Backend] struct {
	fc      *nn.Linear[B]
	deconv1 *nn.ConvTranspose2D[B]
	deconv2 *nn.ConvTranspose2D[B]
	convOut *nn.Conv2D[B]
	relu    *nn.ReLU[B]
	sigmoid *nn.Sigmoid[B]

	config  Config
	backend B
}

// NewDecoder builds the decoder for the given configuration.
func NewDecoder[B tensor.Backend](config Config, backend B) *Decoder[B] {
	return &Decoder[B]{
		fc:      nn.NewLinear(config.LatentDim, config.flatSize(), backend),
		deconv1: nn.NewConvTranspose2D(convWidth2, convWidth2, 3, 2, 1, 1, backend),
		deconv2: nn.NewConvTranspose2D(convWidth2, convWidth1, 3, 2, 1, 1, backend),
		convOut: nn.NewConv2D(convWidth1, config.Channels, 3, 1, 1, backend),
		relu:    nn.NewReLU[B](),
		sigmoid: nn.NewSigmoid[B](),
		config:  config,
		backend: backend,
	}
}

// Forward decodes latent codes [batch, latentDim] into images
// [batch, channels, height, width] with values in (0, 1).
func (d *Decoder[B]) Forward(z *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := z.Shape()
	if len(shape) != 2 || shape[1] != d.config.LatentDim {
		panic(fmt.Sprintf("decoder: expected input [N,%d], got shape %v", d.config.LatentDim, shape))
	}

	batch := shape[0]
	h := d.relu.Forward(d.fc.Forward(z))
	h = h.Reshape(batch, convWidth2, d.config.ImageHeight/4, d.config.ImageWidth/4)

	h = d.relu.Forward(d.deconv1.Forward(h))
	h = d.relu.Forward(d.deconv2.Forward(h))

	return d.sigmoid.Forward(d.convOut.Forward(h))
}

// Parameters returns all trainable parameters of the decoder.
func (d *Decoder[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, d.fc.Parameters()...)
	params = append(params, d.deconv1.Parameters()...)
	params = append(params, d.deconv2.Parameters()...)
	params = append(params, d.convOut.Parameters()...)
	return params
}
