package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/tensor"
)

func raw(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.CPU)
	require.NoError(t, err)
	copy(r.Data(), data)
	return r
}

func ones(t *testing.T, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.CPU)
	require.NoError(t, err)
	for i := range r.Data() {
		r.Data()[i] = 1
	}
	return r
}

func TestBackwardSquare(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// loss = sum(x * x), so dloss/dx = 2x.
	x := raw(t, []float32{1, 2, 3}, tensor.Shape{3})
	y := backend.Mul(x, x)
	loss := backend.Sum(y)

	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())

	gradX, found := grads[x]
	require.True(t, found, "no gradient for x")
	assert.InDeltaSlice(t, []float32{2, 4, 6}, gradX.Data(), 1e-5)
}

func TestBackwardAccumulatesSharedInput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// loss = sum(x + x): gradient accumulates once per use.
	x := raw(t, []float32{1, 2}, tensor.Shape{2})
	y := backend.Add(x, x)
	loss := backend.Sum(y)

	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())

	gradX := grads[x]
	require.NotNil(t, gradX)
	assert.InDeltaSlice(t, []float32{2, 2}, gradX.Data(), 1e-5)
}

func TestBackwardMeanScaling(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := raw(t, []float32{1, 2, 3, 4}, tensor.Shape{4})
	loss := backend.Mean(x)

	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())

	gradX := grads[x]
	require.NotNil(t, gradX)
	assert.InDeltaSlice(t, []float32{0.25, 0.25, 0.25, 0.25}, gradX.Data(), 1e-6)
}

func TestBackwardThroughMatMulChain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// loss = sum(a @ b): grad_a = ones @ b^T, grad_b = a^T @ ones.
	a := raw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := raw(t, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	y := backend.MatMul(a, b)
	loss := backend.Sum(y)

	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())

	gradA := grads[a]
	gradB := grads[b]
	require.NotNil(t, gradA)
	require.NotNil(t, gradB)
	assert.InDeltaSlice(t, []float32{11, 15, 11, 15}, gradA.Data(), 1e-5)
	assert.InDeltaSlice(t, []float32{4, 4, 6, 6}, gradB.Data(), 1e-5)
}

func TestBackwardSumDimKeepDimFalse(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// loss = sum over rows of per-row sums, weighted by [1, 10].
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	rowSums := backend.SumDim(x, 1, false)
	w := raw(t, []float32{1, 10}, tensor.Shape{2})
	weighted := backend.Mul(rowSums, w)
	loss := backend.Sum(weighted)

	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())

	gradX := grads[x]
	require.NotNil(t, gradX)
	assert.InDeltaSlice(t, []float32{1, 1, 1, 10, 10, 10}, gradX.Data(), 1e-5)
}

func TestTapeNotRecordingSkipsOps(t *testing.T) {
	backend := autodiff.New(cpu.New())

	x := raw(t, []float32{1, 2}, tensor.Shape{2})
	_ = backend.Mul(x, x)

	assert.Equal(t, 0, backend.Tape().NumOps())
}

func TestTapeClearPreservesRecordingState(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := raw(t, []float32{1}, tensor.Shape{1})
	_ = backend.Exp(x)
	require.Equal(t, 1, backend.Tape().NumOps())

	backend.Tape().Clear()
	assert.Equal(t, 0, backend.Tape().NumOps())
	assert.True(t, backend.Tape().IsRecording())
}

func TestBCESumForwardAndGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	probs := raw(t, []float32{0.8, 0.3, 0.6, 0.5}, tensor.Shape{2, 2})
	targets := raw(t, []float32{1, 0, 1, 1}, tensor.Shape{2, 2})

	perExample := backend.BCESum(probs, targets)
	require.Equal(t, tensor.Shape{2}, perExample.Shape())

	// -log(0.8) - log(0.7) and -log(0.6) - log(0.5)
	assert.InDelta(t, 0.5798, perExample.Data()[0], 1e-3)
	assert.InDelta(t, 1.2040, perExample.Data()[1], 1e-3)

	loss := backend.Sum(perExample)
	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())

	gradProbs, found := grads[probs]
	require.True(t, found)
	// d/dp of -[t log p + (1-t) log(1-p)]: -1/p for t=1, 1/(1-p) for t=0.
	assert.InDelta(t, -1.25, gradProbs.Data()[0], 1e-4)
	assert.InDelta(t, 1/0.7, gradProbs.Data()[1], 1e-4)
	assert.InDelta(t, -1/0.6, gradProbs.Data()[2], 1e-4)
	assert.InDelta(t, -2.0, gradProbs.Data()[3], 1e-4)

	// Targets are data, not parameters.
	_, hasTargetGrad := grads[targets]
	assert.False(t, hasTargetGrad)
}

func TestBCESumClampKeepsGradientFinite(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// Saturated probabilities would produce infinite logs without clamping.
	probs := raw(t, []float32{0, 1}, tensor.Shape{1, 2})
	targets := raw(t, []float32{1, 0}, tensor.Shape{1, 2})

	perExample := backend.BCESum(probs, targets)
	assert.False(t, isInfOrNaN(perExample.Data()[0]), "loss must stay finite")

	loss := backend.Sum(perExample)
	grads := backend.Tape().Backward(ones(t, loss.Shape()), backend.Inner())
	for _, g := range grads[probs].Data() {
		assert.False(t, isInfOrNaN(g), "gradient must stay finite")
	}
}

func isInfOrNaN(v float32) bool {
	return v != v || v > 1e38 || v < -1e38
}
