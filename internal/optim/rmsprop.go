package optim

import (
	"math"

	"github.com/latentml/vae/internal/nn"
	"github.com/latentml/vae/internal/tensor"
)

// RMSProp implements the RMSProp optimizer.
//
// RMSProp keeps an exponential moving average of squared gradients and
// divides each update by its root, adapting the step size per parameter:
//
//	v_t = rho * v_{t-1} + (1-rho) * gradient²
//	param = param - lr * gradient / (sqrt(v_t) + eps)
//
// Reference: Tieleman & Hinton, "Lecture 6.5 - RMSProp" (COURSERA, 2012).
type RMSProp[B tensor.Backend] struct {
	params  []*nn.Parameter[B]
	lr      float32
	rho     float32
	eps     float32
	v       map[*nn.Parameter[B]]*tensor.Tensor[B] // running squared-gradient average
	backend B
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
// Zero values fall back to defaults.
type RMSPropConfig struct {
	LR  float32 // learning rate (default: 0.001)
	Rho float32 // decay rate of the squared-gradient average (default: 0.9)
	Eps float32 // numerical stability term (default: 1e-7)
}

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp[B tensor.Backend](params []*nn.Parameter[B], config RMSPropConfig, backend B) *RMSProp[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Rho == 0 {
		config.Rho = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-7
	}

	return &RMSProp[B]{
		params:  params,
		lr:      config.LR,
		rho:     config.Rho,
		eps:     config.Eps,
		v:       make(map[*nn.Parameter[B]]*tensor.Tensor[B]),
		backend: backend,
	}
}

// Step performs a single RMSProp update. Parameters with no gradient are
// skipped.
func (r *RMSProp[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range r.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		v, exists := r.v[param]
		if !exists {
			v = tensor.Zeros(param.Tensor().Shape(), r.backend)
			r.v[param] = v
		}

		gradData := grad.Data()
		vData := v.Data()
		paramData := param.Tensor().Data()

		for i := range paramData {
			g := gradData[i]
			vData[i] = r.rho*vData[i] + (1.0-r.rho)*g*g
			paramData[i] -= r.lr * g / (float32(math.Sqrt(float64(vData[i]))) + r.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (r *RMSProp[B]) ZeroGrad() {
	for _, param := range r.params {
		param.ZeroGrad()
	}
}

// GetLR returns the learning rate.
func (r *RMSProp[B]) GetLR() float32 {
	return r.lr
}
