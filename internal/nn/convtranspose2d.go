package nn

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// ConvTranspose2D is a 2D transposed convolutional layer, the upsampling
// counterpart of Conv2D.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [in_channels, out_channels, kernel, kernel]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// where:
//
//	out_h = (height - 1)*stride - 2*padding + kernel + outPadding
//	out_w = (width - 1)*stride - 2*padding + kernel + outPadding
//
// With kernel=3, stride=2, padding=1, outPadding=1 the layer exactly doubles
// the spatial dimensions (7 -> 14 -> 28 for the decoder).
type ConvTranspose2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int
	outPadding  int

	weight *Parameter[B] // [in_channels, out_channels, k, k]
	bias   *Parameter[B] // [out_channels]

	backend B
}

// NewConvTranspose2D creates a new ConvTranspose2D layer with
// Xavier-initialized weights and zero biases. Square kernels only.
func NewConvTranspose2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding, outPadding int, backend B) *ConvTranspose2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv_transpose2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv_transpose2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv_transpose2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv_transpose2d: invalid padding %d", padding))
	}
	if outPadding < 0 || outPadding >= stride {
		panic(fmt.Sprintf("conv_transpose2d: outPadding %d must be in [0, stride)", outPadding))
	}

	weightShape := tensor.Shape{inChannels, outChannels, kernelSize, kernelSize}
	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weight := NewParameter("conv_transpose2d.weight", Xavier(fanIn, fanOut, weightShape, backend))
	bias := NewParameter("conv_transpose2d.bias", Zeros(tensor.Shape{outChannels}, backend))

	return &ConvTranspose2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		outPadding:  outPadding,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward performs the transposed convolution and adds the bias.
func (c *ConvTranspose2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv_transpose2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv_transpose2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	outputRaw := c.backend.ConvTranspose2D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding, c.outPadding)
	output := tensor.New(outputRaw, c.backend)

	biasReshaped := c.bias.Tensor().Reshape(1, c.outChannels, 1, 1)
	return output.Add(biasReshaped)
}

// Parameters returns [weight, bias].
func (c *ConvTranspose2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// String returns a description of the layer configuration.
func (c *ConvTranspose2D[B]) String() string {
	return fmt.Sprintf("ConvTranspose2D(in=%d, out=%d, kernel=%d, stride=%d, padding=%d, outPadding=%d)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding, c.outPadding)
}

// OutputSize computes the output spatial dimensions for an input size.
func (c *ConvTranspose2D[B]) OutputSize(inputH, inputW int) (int, int) {
	outH := (inputH-1)*c.stride - 2*c.padding + c.kernelSize + c.outPadding
	outW := (inputW-1)*c.stride - 2*c.padding + c.kernelSize + c.outPadding
	return outH, outW
}
