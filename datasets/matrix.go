package datasets

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// matrixVersion is bumped whenever matrixFile changes shape.
const matrixVersion = 1

// matrixFile is the on-disk representation of a saved matrix.
type matrixFile struct {
	Version   int
	Rows      int
	Cols      int
	Columns   []string
	CreatedAt int64
	Data      []float64
}

// WriteCSV writes m to path with header as its first line. header may be
// nil; otherwise it must have one name per column.
func WriteCSV(path string, header []string, m mat.Matrix) error {
	r, c := m.Dims()
	if header != nil && len(header) != c {
		return fmt.Errorf("header has %d names for %d columns", len(header), c)
	}
	if _, err := EnsureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if header != nil {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := range record {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// SaveMatrix writes m and its column names to path using encoding/gob. It
// performs an atomic write (create temp file then rename).
func SaveMatrix(path string, columns []string, m mat.Matrix) error {
	if path == "" {
		return fmt.Errorf("empty matrix path")
	}
	r, c := m.Dims()
	if columns != nil && len(columns) != c {
		return fmt.Errorf("%d column names for %d columns", len(columns), c)
	}
	dir, err := EnsureParent(path)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp matrix file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	mf := matrixFile{
		Version:   matrixVersion,
		Rows:      r,
		Cols:      c,
		Columns:   columns,
		CreatedAt: time.Now().Unix(),
		Data:      mat.DenseCopyOf(m).RawMatrix().Data,
	}
	if err := gob.NewEncoder(tmpFile).Encode(&mf); err != nil {
		return fmt.Errorf("encode matrix to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		slog.Warn("sync temp matrix file", slog.String("path", tmpName), slog.Any("error", err))
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp matrix file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp matrix to target: %w", err)
	}
	return nil
}

// LoadMatrix reads a matrix written by SaveMatrix and validates its header.
func LoadMatrix(path string) (*mat.Dense, []string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open matrix file %s: %w", path, err)
	}
	defer fh.Close()

	var mf matrixFile
	if err := gob.NewDecoder(fh).Decode(&mf); err != nil {
		return nil, nil, fmt.Errorf("decode matrix %s: %w", path, err)
	}
	if mf.Version != matrixVersion {
		return nil, nil, fmt.Errorf("matrix version mismatch: file=%d expected=%d", mf.Version, matrixVersion)
	}
	if mf.Rows <= 0 || mf.Cols <= 0 || len(mf.Data) != mf.Rows*mf.Cols {
		return nil, nil, fmt.Errorf("matrix size mismatch: %dx%d with %d values", mf.Rows, mf.Cols, len(mf.Data))
	}
	if mf.Columns != nil && len(mf.Columns) != mf.Cols {
		return nil, nil, fmt.Errorf("matrix has %d column names for %d columns", len(mf.Columns), mf.Cols)
	}
	return mat.NewDense(mf.Rows, mf.Cols, mf.Data), mf.Columns, nil
}

// Format identifies a matrix file encoding by its extension.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatGob    Format = "gob"
	FormatNumpy  Format = "npy"
	FormatTensor Format = "tensor"
)

// FormatOf maps path's extension to a Format. Unknown extensions are CSV.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		return FormatGob
	case ".npy":
		return FormatNumpy
	case ".tensor":
		return FormatTensor
	default:
		return FormatCSV
	}
}

// WriteMatrixFile writes m to path in the format named by its extension.
// Column names are kept by the CSV and gob formats and dropped by the
// tensor formats.
func WriteMatrixFile(path string, columns []string, m mat.Matrix) (Format, error) {
	f := FormatOf(path)
	var err error
	switch f {
	case FormatGob:
		err = SaveMatrix(path, columns, m)
	case FormatNumpy, FormatTensor:
		err = SaveTensor(path, m)
	default:
		err = WriteCSV(path, columns, m)
	}
	return f, err
}

// ReadMatrixFile reads a file written by WriteMatrixFile. Column names are
// nil for the tensor formats.
func ReadMatrixFile(path string) (*mat.Dense, []string, error) {
	switch FormatOf(path) {
	case FormatGob:
		return LoadMatrix(path)
	case FormatNumpy, FormatTensor:
		m, err := LoadTensor(path)
		return m, nil, err
	default:
		return readCSVMatrix(path)
	}
}

// readCSVMatrix reads a headed, all-numeric CSV file.
func readCSVMatrix(path string) (*mat.Dense, []string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("%s: no data rows", path)
	}
	header := records[0]
	m := mat.NewDense(len(records)-1, len(header), nil)
	for i, rec := range records[1:] {
		for j, field := range rec {
			v, err := parseFloat(field)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d column %q: %w", path, i+1, header[j], err)
			}
			m.Set(i, j, v)
		}
	}
	return m, header, nil
}
