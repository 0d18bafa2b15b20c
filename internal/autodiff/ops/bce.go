package ops

import (
	"fmt"
	"math"

	"github.com/latentml/vae/internal/tensor"
)

// BCESumEpsilon clamps probabilities into [eps, 1-eps] before taking logs,
// keeping the loss and its gradient finite at saturated outputs.
const BCESumEpsilon = 1e-7

// BCESumOp represents per-example binary cross-entropy, summed over all
// pixels of each example:
//
//	loss_n = -Σ_i [ t_i*log(p_i) + (1-t_i)*log(1-p_i) ]
//
// probs and targets share the shape [N, ...]; the output is [N].
//
// Backward pass (with respect to probs only, targets are data):
//
//	dloss_n/dp_i = (1-t_i)/(1-p_i) - t_i/p_i
//
// scaled by the incoming per-example gradient. Targets receive no gradient.
type BCESumOp struct {
	inputs []*tensor.RawTensor // [probs, targets]
	output *tensor.RawTensor   // [N]
}

// NewBCESumOp creates a new BCESumOp.
func NewBCESumOp(probs, targets, output *tensor.RawTensor) *BCESumOp {
	return &BCESumOp{
		inputs: []*tensor.RawTensor{probs, targets},
		output: output,
	}
}

// BCESumForward computes the per-example summed binary cross-entropy.
func BCESumForward(probs, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	if !probs.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("bce: probs shape %v != targets shape %v", probs.Shape(), targets.Shape()))
	}

	batch := probs.Shape()[0]
	perExample := probs.NumElements() / batch

	output, err := tensor.NewRaw(tensor.Shape{batch}, device)
	if err != nil {
		panic(fmt.Sprintf("bce: failed to create output tensor: %v", err))
	}

	pData := probs.Data()
	tData := targets.Data()
	oData := output.Data()

	for n := 0; n < batch; n++ {
		var sum float64
		base := n * perExample
		for i := base; i < base+perExample; i++ {
			p := clampProb(pData[i])
			t := float64(tData[i])
			sum -= t*math.Log(float64(p)) + (1-t)*math.Log(float64(1-p))
		}
		oData[n] = float32(sum)
	}

	return output
}

// Backward computes the gradient with respect to probs. The incoming
// gradient is per-example [N] and scales every pixel of that example.
func (op *BCESumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	probs, targets := op.inputs[0], op.inputs[1]

	gradProbs, err := tensor.NewRaw(probs.Shape().Clone(), probs.Device())
	if err != nil {
		panic(fmt.Sprintf("bce backward: failed to create gradient tensor: %v", err))
	}

	batch := probs.Shape()[0]
	perExample := probs.NumElements() / batch

	pData := probs.Data()
	tData := targets.Data()
	gData := outputGrad.Data()
	dst := gradProbs.Data()

	for n := 0; n < batch; n++ {
		g := gData[n]
		base := n * perExample
		for i := base; i < base+perExample; i++ {
			p := clampProb(pData[i])
			t := tData[i]
			dst[i] = g * ((1-t)/(1-p) - t/p)
		}
	}

	return []*tensor.RawTensor{gradProbs, nil}
}

// Inputs returns the input tensors [probs, targets].
func (op *BCESumOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the per-example loss vector [N].
func (op *BCESumOp) Output() *tensor.RawTensor {
	return op.output
}

func clampProb(p float32) float32 {
	const eps = BCESumEpsilon
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
