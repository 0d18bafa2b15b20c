package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/optim"
	"github.com/latentml/vae/internal/tensor"
)

func newParam(t *testing.T, backend *cpu.CPUBackend, data []float32) *nn.Parameter[*cpu.CPUBackend] {
	t.Helper()
	tsr, err := tensor.FromSlice(data, tensor.Shape{len(data)}, backend)
	require.NoError(t, err)
	return nn.NewParameter("p", tsr)
}

func gradFor(t *testing.T, param *nn.Parameter[*cpu.CPUBackend], data []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	grad, err := tensor.NewRaw(param.Tensor().Shape(), tensor.CPU)
	require.NoError(t, err)
	copy(grad.Data(), data)
	return map[*tensor.RawTensor]*tensor.RawTensor{
		param.Tensor().Raw(): grad,
	}
}

func TestRMSPropSingleStep(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1.0})
	opt := optim.NewRMSProp([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.RMSPropConfig{
		LR:  0.1,
		Rho: 0.9,
		Eps: 1e-7,
	}, backend)

	grads := gradFor(t, param, []float32{2.0})
	opt.Step(grads)

	// v = 0.9*0 + 0.1*4 = 0.4; p = 1 - 0.1*2/(sqrt(0.4)+1e-7)
	expected := 1.0 - 0.1*2.0/(math.Sqrt(0.4)+1e-7)
	assert.InDelta(t, expected, param.Tensor().Data()[0], 1e-5)
}

func TestRMSPropAdaptsStepSize(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{0, 0})
	opt := optim.NewRMSProp([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.RMSPropConfig{LR: 0.01}, backend)

	// One large-gradient and one small-gradient coordinate: RMSProp
	// normalizes, so the first-step sizes are nearly equal.
	grads := gradFor(t, param, []float32{100, 0.01})
	opt.Step(grads)

	step0 := math.Abs(float64(param.Tensor().Data()[0]))
	step1 := math.Abs(float64(param.Tensor().Data()[1]))
	assert.InDelta(t, step0, step1, 1e-3)
}

func TestRMSPropDefaults(t *testing.T) {
	backend := cpu.New()
	opt := optim.NewRMSProp([]*nn.Parameter[*cpu.CPUBackend]{}, optim.RMSPropConfig{}, backend)

	assert.InDelta(t, 0.001, opt.GetLR(), 1e-9)
}

func TestRMSPropSkipsParamsWithoutGradient(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{3.0})
	opt := optim.NewRMSProp([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.RMSPropConfig{}, backend)

	opt.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	assert.Equal(t, float32(3.0), param.Tensor().Data()[0])
}

func TestSGDStep(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1.0, 2.0})
	opt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.SGDConfig{LR: 0.5}, backend)

	grads := gradFor(t, param, []float32{1.0, -2.0})
	opt.Step(grads)

	assert.InDeltaSlice(t, []float32{0.5, 3.0}, param.Tensor().Data(), 1e-6)
}

func TestSGDMomentumAccumulates(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{0})
	opt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)

	// Same gradient twice: second step is larger due to velocity.
	opt.Step(gradFor(t, param, []float32{1}))
	afterFirst := param.Tensor().Data()[0]
	opt.Step(gradFor(t, param, []float32{1}))
	secondDelta := param.Tensor().Data()[0] - afterFirst

	assert.InDelta(t, -0.1, afterFirst, 1e-6)
	assert.InDelta(t, -0.19, secondDelta, 1e-6)
}

func TestZeroGradClearsParameters(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1})
	gradTensor := tensor.Zeros(tensor.Shape{1}, backend)
	param.SetGrad(gradTensor)

	opt := optim.NewRMSProp([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.RMSPropConfig{}, backend)
	opt.ZeroGrad()

	assert.Nil(t, param.Grad())
}
