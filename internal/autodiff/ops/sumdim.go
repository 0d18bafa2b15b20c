package ops

import "github.com/latentml/vae/internal/tensor"

// SumDimOp represents a sum reduction along one dimension:
// output = sum(x, dim, keepDim).
//
// Backward pass: every input element contributes with weight 1, so the
// gradient is the output gradient broadcast back to the input shape. With
// keepDim=false the reduced dimension is reinserted first.
type SumDimOp struct {
	inputs  []*tensor.RawTensor // [x]
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward broadcasts the gradient back over the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := outputGrad

	if !op.keepDim {
		dim := op.dim
		if dim < 0 {
			dim += len(x.Shape())
		}
		withDim := x.Shape().Clone()
		withDim[dim] = 1
		grad = grad.WithShape(withDim)
	}

	gradX := broadcastTo(grad, x.Shape())
	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
