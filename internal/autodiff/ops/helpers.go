package ops

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// Needed when broadcasting was used in the forward pass: the gradient of a
// broadcast operand is the sum of the output gradient over the broadcast
// dimensions.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on the matching-shape path so accumulation never aliases
	// a gradient shared with another operation.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// NumPy broadcasting aligns shapes from the right: sum away the
	// leading dimensions the target never had.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = sumAlongDimension(result, 0, false)
	}

	// Then sum along dimensions where the target is 1.
	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && result.Shape()[i] > 1 {
			result = sumAlongDimension(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// sumAlongDimension sums a tensor along the specified dimension.
func sumAlongDimension(t *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for i, s := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, s)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: failed to create result: %v", err))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	src := t.Data()
	dst := result.Data()
	for o := 0; o < outer; o++ {
		for d := 0; d < shape[dim]; d++ {
			base := (o*shape[dim] + d) * inner
			for in := 0; in < inner; in++ {
				dst[o*inner+in] += src[base+in]
			}
		}
	}

	return result
}

// broadcastTo broadcasts a tensor to the target shape (NumPy rules).
func broadcastTo(t *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	if t.Shape().Equal(targetShape) {
		return t.Clone()
	}

	result, err := tensor.NewRaw(targetShape, t.Device())
	if err != nil {
		panic(fmt.Sprintf("broadcastTo: failed to create result: %v", err))
	}

	src := t.Data()
	dst := result.Data()
	srcShape := t.Shape()
	srcStrides := srcShape.ComputeStrides()
	dstStrides := targetShape.ComputeStrides()

	for i := range dst {
		srcIdx := 0
		rem := i
		for d := 0; d < len(targetShape); d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]

			srcDim := d - (len(targetShape) - len(srcShape))
			if srcDim >= 0 {
				if srcShape[srcDim] == 1 {
					coord = 0
				}
				srcIdx += coord * srcStrides[srcDim]
			}
		}
		dst[i] = src[srcIdx]
	}

	return result
}

// onesLike returns a tensor of the same shape filled with 1.
func onesLike(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape().Clone(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("onesLike: failed to create result: %v", err))
	}
	data := result.Data()
	for i := range data {
		data[i] = 1
	}
	return result
}
