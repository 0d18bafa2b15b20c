package ops

import "github.com/latentml/vae/internal/tensor"

// ConvTranspose2DOp represents a transposed convolution:
// output = conv_transpose2d(input, kernel).
//
// The forward pass scatters, so the backward pass for the input is an
// ordinary correlation; the kernel gradient accumulates input-by-gradient
// products over the scatter pattern.
type ConvTranspose2DOp struct {
	inputs     []*tensor.RawTensor // [input, kernel]
	output     *tensor.RawTensor
	stride     int
	padding    int
	outPadding int
}

// NewConvTranspose2DOp creates a new ConvTranspose2DOp.
func NewConvTranspose2DOp(input, kernel, output *tensor.RawTensor, stride, padding, outPadding int) *ConvTranspose2DOp {
	return &ConvTranspose2DOp{
		inputs:     []*tensor.RawTensor{input, kernel},
		output:     output,
		stride:     stride,
		padding:    padding,
		outPadding: outPadding,
	}
}

// Backward computes gradients for the transposed convolution input and kernel.
func (op *ConvTranspose2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]

	gradInput := backend.ConvTranspose2DInputBackward(input, kernel, outputGrad, op.stride, op.padding, op.outPadding)
	gradKernel := backend.ConvTranspose2DKernelBackward(input, kernel, outputGrad, op.stride, op.padding, op.outPadding)

	return []*tensor.RawTensor{gradInput, gradKernel}
}

// Inputs returns the input tensors [input, kernel].
func (op *ConvTranspose2DOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the transposed convolution output.
func (op *ConvTranspose2DOp) Output() *tensor.RawTensor {
	return op.output
}
