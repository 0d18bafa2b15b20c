package ops

import "github.com/latentml/vae/internal/tensor"

// SigmoidOp represents the sigmoid activation: σ(x) = 1 / (1 + exp(-x)).
//
// Backward pass:
//   - dσ/dx = σ(x) * (1 - σ(x))
//   - grad_input = grad_output * output * (1 - output)
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient for sigmoid using the cached output.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	output := op.output

	// σ(x) * (1 - σ(x))
	oneMinus := backend.Sub(onesLike(output), output)
	derivative := backend.Mul(output, oneMinus)

	gradInput := backend.Mul(outputGrad, derivative)
	return []*tensor.RawTensor{gradInput}
}

// Inputs returns the input tensor [x].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor σ(x).
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}
