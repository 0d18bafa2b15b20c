package ops

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// ReLUOp represents the rectified linear unit: y = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
//   - grad_input = grad_output where x > 0, else 0
type ReLUOp struct {
	input  *tensor.RawTensor // x
	output *tensor.RawTensor // max(0, x)
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient for ReLU by masking with the input sign.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	gradInput, err := tensor.NewRaw(op.input.Shape().Clone(), op.input.Device())
	if err != nil {
		panic(fmt.Sprintf("relu backward: failed to create gradient tensor: %v", err))
	}

	xData := op.input.Data()
	gradData := outputGrad.Data()
	dst := gradInput.Data()
	for i, x := range xData {
		if x > 0 {
			dst[i] = gradData[i]
		}
	}

	return []*tensor.RawTensor{gradInput}
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
