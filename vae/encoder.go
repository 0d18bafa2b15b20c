package vae

import (
	"fmt"

	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/tensor"
)

// Encoder maps images to the parameters of a diagonal Gaussian posterior
// over the latent space.
//
// Architecture (NCHW):
//
//	Conv2D(C→32, 3x3, stride 2, pad 1) → ReLU   // H,W → H/2,W/2
//	Conv2D(32→64, 3x3, stride 2, pad 1) → ReLU  // → H/4,W/4
//	flatten → Linear(64·H/4·W/4 → hidden) → ReLU
//	Linear(hidden → latent)  [mean head]
//	Linear(hidden → latent)  [logVar head]
//
// Both heads are unconstrained: logVar may be any real number.
type Encoder[B tensor.Backend] struct {
	conv1      *nn.Conv2D[B]
	conv2      *nn.Conv2D[B]
	fc         *nn.Linear[B]
	meanHead   *nn.Linear[B]
	logVarHead *nn.Linear[B]
	relu       *nn.ReLU[B]

	config  Config
	backend B
}

// NewEncoder builds the encoder for the given configuration.
func NewEncoder[B tensor.Backend](config Config, backend B) *Encoder[B] {
	return &Encoder[B]{
		conv1:      nn.NewConv2D(config.Channels, convWidth1, 3, 2, 1, backend),
		conv2:      nn.NewConv2D(convWidth1, convWidth2, 3, 2, 1, backend),
		fc:         nn.NewLinear(config.flatSize(), config.HiddenDim, backend),
		meanHead:   nn.NewLinear(config.HiddenDim, config.LatentDim, backend),
		logVarHead: nn.NewLinear(config.HiddenDim, config.LatentDim, backend),
		relu:       nn.NewReLU[B](),
		config:     config,
		backend:    backend,
	}
}

// Forward encodes a batch of images into posterior mean and log-variance,
// each with shape [batch, latentDim].
func (e *Encoder[B]) Forward(x *tensor.Tensor[B]) (mean, logVar *tensor.Tensor[B]) {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("encoder: expected 4D input [N,C,H,W], got shape %v", shape))
	}
	if shape[1] != e.config.Channels || shape[2] != e.config.ImageHeight || shape[3] != e.config.ImageWidth {
		panic(fmt.Sprintf("encoder: expected input [N,%d,%d,%d], got %v",
			e.config.Channels, e.config.ImageHeight, e.config.ImageWidth, shape))
	}

	h := e.relu.Forward(e.conv1.Forward(x))
	h = e.relu.Forward(e.conv2.Forward(h))

	batch := shape[0]
	h = h.Reshape(batch, e.config.flatSize())
	h = e.relu.Forward(e.fc.Forward(h))

	return e.meanHead.Forward(h), e.logVarHead.Forward(h)
}

// Parameters returns all trainable parameters of the encoder.
func (e *Encoder[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, e.conv1.Parameters()...)
	params = append(params, e.conv2.Parameters()...)
	params = append(params, e.fc.Parameters()...)
	params = append(params, e.meanHead.Parameters()...)
	params = append(params, e.logVarHead.Parameters()...)
	return params
}
