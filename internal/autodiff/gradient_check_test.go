package autodiff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/tensor"
)

// numericGradient estimates df/dx element-wise with central differences.
// f must be a pure function of the tensor contents.
func numericGradient(x *tensor.RawTensor, eps float32, f func() float64) []float32 {
	grad := make([]float32, len(x.Data()))
	for i := range x.Data() {
		orig := x.Data()[i]
		x.Data()[i] = orig + eps
		plus := f()
		x.Data()[i] = orig - eps
		minus := f()
		x.Data()[i] = orig
		grad[i] = float32((plus - minus) / float64(2*eps))
	}
	return grad
}

func TestGradientCheckSigmoidConv(t *testing.T) {
	backend := autodiff.New(cpu.New())
	inner := backend.Inner()

	input := raw(t, []float32{
		0.5, -0.3, 0.8,
		0.1, 0.9, -0.6,
		0.4, -0.2, 0.7,
	}, tensor.Shape{1, 1, 3, 3})
	kernel := raw(t, []float32{
		0.2, -0.5,
		0.3, 0.1,
	}, tensor.Shape{1, 1, 2, 2})

	// Analytic gradient through the tape.
	backend.Tape().StartRecording()
	conv := backend.Conv2D(input, kernel, 1, 0)
	activated := backend.Sigmoid(conv)
	loss := backend.Sum(activated)
	grads := backend.Tape().Backward(ones(t, loss.Shape()), inner)

	gradInput := grads[input]
	gradKernel := grads[kernel]
	require.NotNil(t, gradInput)
	require.NotNil(t, gradKernel)

	// Unrecorded forward pass for the numeric estimate.
	backend.Tape().StopRecording()
	eval := func() float64 {
		out := inner.Sum(sigmoidRaw(t, inner.Conv2D(input, kernel, 1, 0)))
		return float64(out.Data()[0])
	}

	const eps = 1e-2
	numericInput := numericGradient(input, eps, eval)
	for i := range numericInput {
		assert.InDelta(t, numericInput[i], gradInput.Data()[i], 5e-3, "input grad at %d", i)
	}

	numericKernel := numericGradient(kernel, eps, eval)
	for i := range numericKernel {
		assert.InDelta(t, numericKernel[i], gradKernel.Data()[i], 5e-3, "kernel grad at %d", i)
	}
}

func TestGradientCheckExpLogChain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	inner := backend.Inner()

	x := raw(t, []float32{0.5, 1.2, 2.0}, tensor.Shape{3})

	// loss = sum(log(exp(x) + 1)), the softplus.
	backend.Tape().StartRecording()
	expX := backend.Exp(x)
	shifted := backend.AddScalar(expX, 1)
	logged := backend.Log(shifted)
	loss := backend.Sum(logged)
	grads := backend.Tape().Backward(ones(t, loss.Shape()), inner)

	gradX := grads[x]
	require.NotNil(t, gradX)

	backend.Tape().StopRecording()
	eval := func() float64 {
		out := inner.Sum(inner.Log(inner.AddScalar(inner.Exp(x), 1)))
		return float64(out.Data()[0])
	}

	numeric := numericGradient(x, 1e-2, eval)
	for i := range numeric {
		assert.InDelta(t, numeric[i], gradX.Data()[i], 1e-3, "grad at %d", i)
	}
}

func TestGradientCheckConvTranspose(t *testing.T) {
	backend := autodiff.New(cpu.New())
	inner := backend.Inner()

	input := raw(t, []float32{0.5, -1.0, 1.5, 0.7}, tensor.Shape{1, 1, 2, 2})
	kernel := raw(t, []float32{
		0.1, -0.2, 0.5,
		0.3, 0.4, -0.1,
		0.2, 0.6, 0.3,
	}, tensor.Shape{1, 1, 3, 3})

	backend.Tape().StartRecording()
	out := backend.ConvTranspose2D(input, kernel, 2, 1, 1)
	activated := backend.Sigmoid(out)
	loss := backend.Sum(activated)
	grads := backend.Tape().Backward(ones(t, loss.Shape()), inner)

	gradInput := grads[input]
	gradKernel := grads[kernel]
	require.NotNil(t, gradInput)
	require.NotNil(t, gradKernel)

	backend.Tape().StopRecording()
	eval := func() float64 {
		res := inner.Sum(sigmoidRaw(t, inner.ConvTranspose2D(input, kernel, 2, 1, 1)))
		return float64(res.Data()[0])
	}

	const eps = 1e-2
	numericInput := numericGradient(input, eps, eval)
	for i := range numericInput {
		assert.InDelta(t, numericInput[i], gradInput.Data()[i], 5e-3, "input grad at %d", i)
	}

	numericKernel := numericGradient(kernel, eps, eval)
	for i := range numericKernel {
		assert.InDelta(t, numericKernel[i], gradKernel.Data()[i], 5e-3, "kernel grad at %d", i)
	}
}

// sigmoidRaw applies the logistic function without touching any tape.
func sigmoidRaw(t *testing.T, x *tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	result, err := tensor.NewRaw(x.Shape().Clone(), x.Device())
	require.NoError(t, err)
	for i, v := range x.Data() {
		result.Data()[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
	return result
}
