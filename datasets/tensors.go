package datasets

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/numpy"
	"github.com/gomlx/gopjrt/dtypes"
	"gonum.org/v1/gonum/mat"
)

// MatrixTensor copies m into a float64 gomlx tensor of shape [rows, cols].
func MatrixTensor(m mat.Matrix) *tensors.Tensor {
	r, c := m.Dims()
	return tensors.FromFlatDataAndDimensions(flatten(m), r, c)
}

// flatten returns m's values in row-major order. The backing array of a
// compact *mat.Dense is returned as is.
func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	if d, ok := m.(*mat.Dense); ok {
		if raw := d.RawMatrix(); raw.Stride == c {
			return raw.Data[:r*c]
		}
	}
	return mat.DenseCopyOf(m).RawMatrix().Data
}

// TensorMatrix converts a rank-2 float64 or float32 tensor to a matrix.
func TensorMatrix(t *tensors.Tensor) (*mat.Dense, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	dims := t.Shape().Dimensions
	if len(dims) != 2 {
		return nil, fmt.Errorf("tensor has rank %d, want 2", len(dims))
	}
	r, c := dims[0], dims[1]
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("empty tensor of shape [%d, %d]", r, c)
	}
	data := make([]float64, r*c)
	switch t.DType() {
	case dtypes.Float64:
		tensors.ConstFlatData(t, func(flat []float64) { copy(data, flat) })
	case dtypes.Float32:
		tensors.ConstFlatData(t, func(flat []float32) {
			for i, v := range flat {
				data[i] = float64(v)
			}
		})
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %s", t.DType())
	}
	return mat.NewDense(r, c, data), nil
}

// isNumpy reports whether path names a NumPy .npy file. Any other tensor
// path uses the gomlx gob encoding.
func isNumpy(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".npy")
}

// SaveTensor writes m as a [rows, cols] float64 tensor. A .npy path is
// written in NumPy's format; anything else uses gomlx's own gob encoding,
// readable with tensors.Load. The write is atomic.
func SaveTensor(path string, m mat.Matrix) error {
	if path == "" {
		return fmt.Errorf("empty tensor path")
	}
	dir, err := EnsureParent(path)
	if err != nil {
		return err
	}
	t := MatrixTensor(m)
	defer t.FinalizeAll()

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp tensor file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	if isNumpy(path) {
		err = numpy.ToNpyWriter(t, tmpFile)
	} else {
		err = t.GobSerialize(gob.NewEncoder(tmpFile))
	}
	if err != nil {
		return fmt.Errorf("encode tensor %s: %w", path, err)
	}
	if err := tmpFile.Sync(); err != nil {
		slog.Warn("sync temp tensor file", slog.String("path", tmpName), slog.Any("error", err))
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp tensor file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp tensor to target: %w", err)
	}
	return nil
}

// LoadTensor reads a tensor written by SaveTensor (or by NumPy for .npy
// files) back into a matrix.
func LoadTensor(path string) (*mat.Dense, error) {
	var (
		t   *tensors.Tensor
		err error
	)
	if isNumpy(path) {
		t, err = numpy.FromNpyFile(path)
	} else {
		t, err = loadGobTensor(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load tensor %s: %w", path, err)
	}
	defer t.FinalizeAll()
	return TensorMatrix(t)
}

func loadGobTensor(path string) (*tensors.Tensor, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return tensors.GobDeserialize(gob.NewDecoder(fh))
}
