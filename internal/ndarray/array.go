package ndarray

import "fmt"

// Array is a dense row-major buffer of T with a fixed shape.
// The zero value is not usable; build one with Zeros, FromSlice or Wrap.
type Array[T Float] struct {
	shape Shape
	data  []T
}

// Zeros allocates a zero-filled array of the given shape.
func Zeros[T Float](shape Shape) (*Array[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Array[T]{shape: shape.Clone(), data: make([]T, shape.NumElements())}, nil
}

// MustZeros is Zeros that panics on an invalid shape.
func MustZeros[T Float](shape ...int) *Array[T] {
	a, err := Zeros[T](Shape(shape))
	if err != nil {
		panic(err)
	}
	return a
}

// FromSlice creates an array from a Go slice. The slice is copied.
func FromSlice[T Float](data []T, shape Shape) (*Array[T], error) {
	a, err := Wrap(data, shape)
	if err != nil {
		return nil, err
	}
	a.data = append([]T(nil), data...)
	return a, nil
}

// Wrap creates an array that aliases data without copying.
func Wrap[T Float](data []T, shape Shape) (*Array[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	return &Array[T]{shape: shape.Clone(), data: data}, nil
}

// Shape returns the array's shape. The returned value must not be modified.
func (a *Array[T]) Shape() Shape { return a.shape }

// Rank returns the number of dimensions.
func (a *Array[T]) Rank() int { return len(a.shape) }

// Dim returns the size of dimension i, or 0 when i is out of range.
func (a *Array[T]) Dim(i int) int {
	if i < 0 || i >= len(a.shape) {
		return 0
	}
	return a.shape[i]
}

// Len returns the total number of elements.
func (a *Array[T]) Len() int { return len(a.data) }

// Data returns the flat backing slice (zero-copy).
//
// WARNING: Modifications to the returned slice modify the array.
func (a *Array[T]) Data() []T { return a.data }

// Zero sets every element to 0.
func (a *Array[T]) Zero() {
	clear(a.data)
}

// Fill sets every element to v.
func (a *Array[T]) Fill(v T) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	return &Array[T]{shape: a.shape.Clone(), data: append([]T(nil), a.data...)}
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (a *Array[T]) At(indices ...int) T {
	return a.data[a.offset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (a *Array[T]) Set(value T, indices ...int) {
	a.data[a.offset(indices)] = value
}

func (a *Array[T]) offset(indices []int) int {
	if len(indices) != len(a.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(a.shape), len(indices)))
	}
	offset := 0
	strides := a.shape.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= a.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, a.shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// HasShape reports whether the array is non-nil and has exactly the given dims.
func (a *Array[T]) HasShape(dims ...int) bool {
	return a != nil && a.shape.Equal(Shape(dims))
}

// Convert copies src into a new array of precision U.
func Convert[U, T Float](src *Array[T]) *Array[U] {
	out := &Array[U]{shape: src.shape.Clone(), data: make([]U, len(src.data))}
	for i, v := range src.data {
		out.data[i] = U(v)
	}
	return out
}
