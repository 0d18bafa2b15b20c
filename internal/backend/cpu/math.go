package cpu

import (
	"fmt"
	"math"

	"github.com/latentml/vae/internal/tensor"
)

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mathOp("exp", x, func(v float32) float32 {
		return float32(math.Exp(float64(v)))
	})
}

// Log computes element-wise natural logarithm: ln(x).
// Input values must be positive.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mathOp("log", x, func(v float32) float32 {
		if v <= 0 {
			panic(fmt.Sprintf("log: non-positive value %f", v))
		}
		return float32(math.Log(float64(v)))
	})
}

// Sqrt computes element-wise square root: sqrt(x).
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.mathOp("sqrt", x, func(v float32) float32 {
		if v < 0 {
			panic(fmt.Sprintf("sqrt: negative value %f", v))
		}
		return float32(math.Sqrt(float64(v)))
	})
}

func (cpu *CPUBackend) mathOp(name string, x *tensor.RawTensor, f func(v float32) float32) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	src := x.Data()
	dst := result.Data()
	for i, v := range src {
		dst[i] = f(v)
	}
	return result
}
