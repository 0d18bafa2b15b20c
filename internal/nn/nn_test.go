package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/tensor"
)

func TestLinearForward(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, backend)

	// Overwrite the random init with known values.
	copy(layer.Weight().Tensor().Data(), []float32{
		1, 0, -1,
		2, 1, 0,
	})
	copy(layer.Bias().Tensor().Data(), []float32{0.5, -0.5})

	input, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	output := layer.Forward(input)

	require.Equal(t, tensor.Shape{1, 2}, output.Shape())
	// [1*1 + 2*0 + 3*(-1) + 0.5, 1*2 + 2*1 + 3*0 - 0.5]
	assert.InDeltaSlice(t, []float32{-1.5, 3.5}, output.Data(), 1e-5)
}

func TestLinearRejectsWrongFeatureCount(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, backend)

	input, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	assert.Panics(t, func() {
		layer.Forward(input)
	})
}

func TestLinearParameters(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(4, 8, backend)

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, tensor.Shape{8, 4}, params[0].Tensor().Shape())
	assert.Equal(t, tensor.Shape{8}, params[1].Tensor().Shape())
}

func TestConv2DForwardShape(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv2D(1, 32, 3, 2, 1, backend)

	input := tensor.Zeros(tensor.Shape{4, 1, 28, 28}, backend)
	output := conv.Forward(input)

	assert.Equal(t, tensor.Shape{4, 32, 14, 14}, output.Shape())

	outH, outW := conv.OutputSize(28, 28)
	assert.Equal(t, 14, outH)
	assert.Equal(t, 14, outW)
}

func TestConvTranspose2DForwardShape(t *testing.T) {
	backend := cpu.New()
	deconv := nn.NewConvTranspose2D(64, 32, 3, 2, 1, 1, backend)

	input := tensor.Zeros(tensor.Shape{4, 64, 7, 7}, backend)
	output := deconv.Forward(input)

	assert.Equal(t, tensor.Shape{4, 32, 14, 14}, output.Shape())
}

func TestConvBiasAffectsOutput(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv2D(1, 2, 3, 1, 1, backend)

	// Zero weights: output is exactly the per-channel bias.
	for i := range conv.Parameters()[0].Tensor().Data() {
		conv.Parameters()[0].Tensor().Data()[i] = 0
	}
	copy(conv.Parameters()[1].Tensor().Data(), []float32{1.5, -2.5})

	input := tensor.Zeros(tensor.Shape{1, 1, 4, 4}, backend)
	output := conv.Forward(input)

	assert.InDelta(t, 1.5, output.At(0, 0, 2, 2), 1e-6)
	assert.InDelta(t, -2.5, output.At(0, 1, 2, 2), 1e-6)
}

func TestReLUForward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	relu := nn.NewReLU[*autodiff.AutodiffBackend[*cpu.CPUBackend]]()

	input, err := tensor.FromSlice([]float32{-1, 0, 2, -3}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	output := relu.Forward(input)

	assert.Equal(t, []float32{0, 0, 2, 0}, output.Data())
	assert.Nil(t, relu.Parameters())
}

func TestSigmoidForward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	sigmoid := nn.NewSigmoid[*autodiff.AutodiffBackend[*cpu.CPUBackend]]()

	input, err := tensor.FromSlice([]float32{0, 100, -100}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	output := sigmoid.Forward(input)

	assert.InDelta(t, 0.5, output.Data()[0], 1e-6)
	assert.InDelta(t, 1.0, output.Data()[1], 1e-6)
	assert.InDelta(t, 0.0, output.Data()[2], 1e-6)
}

func TestActivationsRequireAutodiffBackend(t *testing.T) {
	backend := cpu.New()
	relu := nn.NewReLU[*cpu.CPUBackend]()

	input := tensor.Zeros(tensor.Shape{2}, backend)

	// Plain CPU backend has no activation kernels.
	assert.Panics(t, func() {
		relu.Forward(input)
	})
}

func TestLinearGradientsReachParameters(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	layer := nn.NewLinear(3, 2, backend)
	input, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	output := layer.Forward(input)
	loss := output.Sum()

	outputGrad, err := tensor.NewRaw(loss.Shape(), tensor.CPU)
	require.NoError(t, err)
	outputGrad.Data()[0] = 1

	grads := backend.Tape().Backward(outputGrad, backend.Inner())

	// Both weight and bias must receive gradients through the transpose
	// and broadcast reshape.
	_, hasWeight := grads[layer.Weight().Tensor().Raw()]
	_, hasBias := grads[layer.Bias().Tensor().Raw()]
	assert.True(t, hasWeight, "weight gradient missing")
	assert.True(t, hasBias, "bias gradient missing")
}
