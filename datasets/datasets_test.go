package datasets

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/numpy"
	"gonum.org/v1/gonum/mat"
)

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv %s: %v", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(header + "\n"); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for _, r := range rows {
		if _, err := f.WriteString(r + "\n"); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
}

// TestLoadCSV_MultipleFiles creates two CSV files and verifies that
// LoadCSV concatenates them in name order and picks columns by name.
func TestLoadCSV_MultipleFiles(t *testing.T) {
	tmp := t.TempDir()
	header := "Lat,lon,rooms,price"
	writeCSV(t, filepath.Join(tmp, "a.csv"), header, []string{
		"1,2,3,100",
		"4,5,6,200",
	})
	writeCSV(t, filepath.Join(tmp, "b.csv"), header, []string{
		"7,8,9,300",
	})

	for _, pattern := range []string{filepath.Join(tmp, "*.csv"), tmp} {
		tab, err := LoadCSV(pattern, nil, []string{"price"})
		if err != nil {
			t.Fatalf("LoadCSV(%s) failed: %v", pattern, err)
		}
		if got := tab.Len(); got != 3 {
			t.Fatalf("expected len 3, got %d", got)
		}
		want := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
		if !mat.Equal(want, tab.X) {
			t.Fatalf("unexpected X:\n%v", mat.Formatted(tab.X))
		}
		if tab.Y.At(2, 0) != 300 {
			t.Fatalf("unexpected Y: %v", mat.Formatted(tab.Y))
		}
		if len(tab.FeatureNames) != 3 || tab.FeatureNames[0] != "Lat" || tab.TargetNames[0] != "price" {
			t.Fatalf("unexpected names: %v %v", tab.FeatureNames, tab.TargetNames)
		}
	}

	// explicit features, case-insensitive
	tab, err := LoadCSV(filepath.Join(tmp, "a.csv"), []string{"ROOMS", "lat"}, []string{"price"})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if in, lab := mat.Row(nil, 1, tab.X), mat.Row(nil, 1, tab.Y); in[0] != 6 || in[1] != 4 || lab[0] != 200 {
		t.Fatalf("unexpected row 1: in=%v lab=%v", in, lab)
	}
}

func TestLoadCSV_Errors(t *testing.T) {
	tmp := t.TempDir()
	good := filepath.Join(tmp, "good.csv")
	writeCSV(t, good, "x,y", []string{"1,2"})

	bad := filepath.Join(tmp, "bad.csv")
	writeCSV(t, bad, "x,y", []string{"1,oops"})

	other := filepath.Join(t.TempDir(), "other.csv")
	writeCSV(t, other, "x,z", []string{"1,2"})

	cases := map[string]func() error{
		"no targets": func() error {
			_, err := LoadCSV(good, nil, nil)
			return err
		},
		"missing column": func() error {
			_, err := LoadCSV(good, nil, []string{"price"})
			return err
		},
		"no files": func() error {
			_, err := LoadCSV(filepath.Join(tmp, "*.parquet"), nil, []string{"y"})
			return err
		},
		"unparsable value": func() error {
			_, err := LoadCSV(bad, nil, []string{"y"})
			return err
		},
		"no features left": func() error {
			_, err := LoadCSV(good, nil, []string{"x", "y"})
			return err
		},
		"header mismatch": func() error {
			mixed := t.TempDir()
			for _, src := range []string{good, other} {
				b, err := os.ReadFile(src)
				if err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(mixed, filepath.Base(src)), b, 0644); err != nil {
					t.Fatal(err)
				}
			}
			_, err := LoadCSV(mixed, nil, []string{"x"})
			return err
		},
	}
	for name, fn := range cases {
		if err := fn(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestTable_SubsetAndSplit(t *testing.T) {
	tab := &Table{
		X: mat.NewDense(10, 2, nil),
		Y: mat.NewDense(10, 1, nil),
	}
	for i := 0; i < 10; i++ {
		tab.X.SetRow(i, []float64{float64(i), float64(-i)})
		tab.Y.Set(i, 0, float64(i*i))
	}

	sub, err := tab.Subset([]int{3, 7})
	if err != nil {
		t.Fatalf("Subset error: %v", err)
	}
	if sub.X.At(1, 0) != 7 || sub.X.At(1, 1) != -7 || sub.Y.At(0, 0) != 9 {
		t.Fatalf("unexpected subset: %v %v", mat.Formatted(sub.X), mat.Formatted(sub.Y))
	}
	if _, err := tab.Subset([]int{10}); err == nil {
		t.Fatalf("expected out of range error")
	}

	train, test, err := tab.Split(0.3, 42)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if train.Len() != 7 || test.Len() != 3 {
		t.Fatalf("unexpected split sizes: train=%d test=%d", train.Len(), test.Len())
	}
	seen := map[float64]bool{}
	for _, part := range []*Table{train, test} {
		for i := 0; i < part.Len(); i++ {
			x := part.X.At(i, 0)
			if part.Y.At(i, 0) != x*x {
				t.Fatalf("row %v lost its target", x)
			}
			seen[x] = true
		}
	}
	if len(seen) != 10 {
		t.Fatalf("split lost rows: %v", seen)
	}

	again, _, err := tab.Split(0.3, 42)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	if !mat.Equal(train.X, again.X) {
		t.Fatalf("split is not deterministic for a fixed seed")
	}

	// tiny ratios still leave one test row
	_, test, err = tab.Split(0.01, 1)
	if err != nil || test.Len() != 1 {
		t.Fatalf("expected one test row, got %v (err %v)", test, err)
	}
	for _, r := range []float64{0, 1, -0.5} {
		if _, _, err := tab.Split(r, 1); err == nil {
			t.Fatalf("expected error for ratio %g", r)
		}
	}
}

func TestMatrixTensor(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	tt := MatrixTensor(x)
	if dims := tt.Shape().Dimensions; len(dims) != 2 || dims[0] != 3 || dims[1] != 2 {
		t.Fatalf("unexpected tensor shape %v", dims)
	}
	back, err := TensorMatrix(tt)
	if err != nil {
		t.Fatalf("TensorMatrix error: %v", err)
	}
	if !mat.Equal(x, back) {
		t.Fatalf("tensor lost values: %v", mat.Formatted(back))
	}

	// non-compact views are copied in row order
	view := x.Slice(1, 3, 1, 2)
	back, err = TensorMatrix(MatrixTensor(view))
	if err != nil {
		t.Fatalf("TensorMatrix(view) error: %v", err)
	}
	if r, c := back.Dims(); r != 2 || c != 1 || back.At(0, 0) != 4 || back.At(1, 0) != 6 {
		t.Fatalf("unexpected view tensor: %v", mat.Formatted(back))
	}

	if _, err := TensorMatrix(nil); err == nil {
		t.Fatalf("expected error for nil tensor")
	}
	if _, err := TensorMatrix(tensors.FromValue([]float64{1, 2})); err == nil {
		t.Fatalf("expected error for rank-1 tensor")
	}
	if _, err := TensorMatrix(tensors.FromValue([][]int32{{1}})); err == nil {
		t.Fatalf("expected error for int tensor")
	}
	f32, err := TensorMatrix(tensors.FromValue([][]float32{{0.5, 2}}))
	if err != nil || f32.At(0, 0) != 0.5 || f32.At(0, 1) != 2 {
		t.Fatalf("float32 tensor: %v (err %v)", f32, err)
	}
}

func TestMatrixFileFormats(t *testing.T) {
	dir := t.TempDir()
	m := mat.NewDense(2, 3, []float64{1.5, -2, 3, 0.25, 5e-9, 6})
	names := []string{"a", "b", "c"}

	for _, tc := range []struct {
		file      string
		format    Format
		keepsCols bool
	}{
		{"out/wide.csv", FormatCSV, true},
		{"out/wide.txt", FormatCSV, true},
		{"out/wide.gob", FormatGob, true},
		{"out/wide.npy", FormatNumpy, false},
		{"out/wide.TENSOR", FormatTensor, false},
	} {
		path := filepath.Join(dir, tc.file)
		f, err := WriteMatrixFile(path, names, m)
		if err != nil {
			t.Fatalf("%s: WriteMatrixFile error: %v", tc.file, err)
		}
		if f != tc.format {
			t.Fatalf("%s: format %q, want %q", tc.file, f, tc.format)
		}
		got, cols, err := ReadMatrixFile(path)
		if err != nil {
			t.Fatalf("%s: ReadMatrixFile error: %v", tc.file, err)
		}
		if !mat.Equal(m, got) {
			t.Fatalf("%s: values changed: %v", tc.file, mat.Formatted(got))
		}
		if tc.keepsCols && (len(cols) != 3 || cols[2] != "c") {
			t.Fatalf("%s: unexpected columns %v", tc.file, cols)
		}
		if !tc.keepsCols && cols != nil {
			t.Fatalf("%s: tensor formats carry no columns, got %v", tc.file, cols)
		}
	}

	// the .npy file is plain NumPy and readable without our helpers
	npy, err := numpy.FromNpyFile(filepath.Join(dir, "out/wide.npy"))
	if err != nil {
		t.Fatalf("FromNpyFile error: %v", err)
	}
	if dims := npy.Shape().Dimensions; len(dims) != 2 || dims[0] != 2 || dims[1] != 3 {
		t.Fatalf("unexpected npy shape %v", dims)
	}

	if _, err := LoadTensor(filepath.Join(dir, "missing.tensor")); err == nil {
		t.Fatalf("expected error for missing tensor file")
	}
	garbage := filepath.Join(dir, "garbage.npy")
	if err := os.WriteFile(garbage, []byte("not numpy"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTensor(garbage); err == nil {
		t.Fatalf("expected error for corrupt npy file")
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "wide.csv")
	m := mat.NewDense(2, 2, []float64{1.5, 2, 3, 0.25})
	if err := WriteCSV(path, []string{"a", "b"}, m); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0][1] != "b" || records[1][0] != "1.5" || records[2][1] != "0.25" {
		t.Fatalf("unexpected csv: %v", records)
	}

	if err := WriteCSV(path, []string{"a"}, m); err == nil {
		t.Fatalf("expected header length error")
	}

	// the written file loads back as a table
	tab, err := LoadCSV(path, []string{"a"}, []string{"b"})
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	if tab.X.At(1, 0) != 3 || tab.Y.At(0, 0) != 2 {
		t.Fatalf("unexpected round trip: %v %v", mat.Formatted(tab.X), mat.Formatted(tab.Y))
	}
}

func TestSaveLoadMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "wide.gob")
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	if err := SaveMatrix(path, []string{"a", "b", "c"}, m); err != nil {
		t.Fatalf("SaveMatrix error: %v", err)
	}

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the matrix file, got %d entries", len(entries))
	}

	got, cols, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix error: %v", err)
	}
	if !mat.Equal(m, got) || len(cols) != 3 || cols[2] != "c" {
		t.Fatalf("unexpected matrix %v cols %v", mat.Formatted(got), cols)
	}

	if err := SaveMatrix(path, []string{"a"}, m); err == nil {
		t.Fatalf("expected column name error")
	}
	if _, _, err := LoadMatrix(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
