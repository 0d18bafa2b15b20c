package ops

import "github.com/latentml/vae/internal/tensor"

// MeanOp represents a full mean reduction: output = mean(x), a scalar.
//
// Backward pass: each element contributed 1/N, so the gradient is the scalar
// output gradient spread uniformly over the input shape and scaled by 1/N.
type MeanOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // [1]
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward distributes the scalar gradient uniformly, scaled by 1/N.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	n := float32(x.NumElements())

	gradX := broadcastTo(outputGrad.WithShape(tensor.Shape{1}), x.Shape())
	gradX = backend.MulScalar(gradX, 1/n)

	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scalar mean.
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}

// SumOp represents a full sum reduction: output = sum(x), a scalar.
//
// Backward pass: the scalar gradient is broadcast uniformly over the input.
type SumOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // [1]
}

// NewSumOp creates a new SumOp.
func NewSumOp(x, output *tensor.RawTensor) *SumOp {
	return &SumOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward broadcasts the scalar gradient over the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	gradX := broadcastTo(outputGrad.WithShape(tensor.Shape{1}), x.Shape())
	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}
