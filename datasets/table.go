package datasets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Table is a feature matrix and a target matrix read from CSV, aligned row
// for row.
type Table struct {
	X *mat.Dense
	Y *mat.Dense

	FeatureNames []string
	TargetNames  []string
}

// LoadCSV reads every CSV file matched by pattern (a file, a directory or a
// glob). Files must share the first file's columns; rows are concatenated in
// file name order. Column names are matched case-insensitively. An empty
// features list selects every column that is not a target.
func LoadCSV(pattern string, features, targets []string) (*Table, error) {
	if len(targets) == 0 {
		return nil, errors.New("datasets: at least one target column is required")
	}
	paths, err := expandPattern(pattern)
	if err != nil {
		return nil, err
	}

	header, err := readHeader(paths[0])
	if err != nil {
		return nil, err
	}
	featIdx, targIdx, featNames, err := selectColumns(header, features, targets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", paths[0], err)
	}

	total := 0
	for _, p := range paths {
		n, err := countCSVRows(p)
		if err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", p, err)
		}
		total += n
	}
	if total == 0 {
		return nil, fmt.Errorf("no data rows found matching pattern: %s", pattern)
	}

	t := &Table{
		X:            mat.NewDense(total, len(featIdx), nil),
		Y:            mat.NewDense(total, len(targIdx), nil),
		FeatureNames: featNames,
		TargetNames:  append([]string(nil), targets...),
	}
	row := 0
	for _, p := range paths {
		n, err := t.readFile(p, header, row, featIdx, targIdx)
		if err != nil {
			return nil, err
		}
		row += n
	}
	return t, nil
}

func readHeader(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", path, err)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return header, nil
}

// selectColumns maps feature and target names to header positions.
func selectColumns(header, features, targets []string) (featIdx, targIdx []int, featNames []string, err error) {
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[normalizeName(col)] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := colIndex[normalizeName(name)]
		if !ok {
			return 0, fmt.Errorf("required column %q not found in CSV", name)
		}
		return i, nil
	}

	isTarget := make(map[int]bool, len(targets))
	for _, name := range targets {
		i, err := lookup(name)
		if err != nil {
			return nil, nil, nil, err
		}
		targIdx = append(targIdx, i)
		isTarget[i] = true
	}

	if len(features) == 0 {
		for i, col := range header {
			if !isTarget[i] {
				featIdx = append(featIdx, i)
				featNames = append(featNames, col)
			}
		}
	} else {
		for _, name := range features {
			i, err := lookup(name)
			if err != nil {
				return nil, nil, nil, err
			}
			featIdx = append(featIdx, i)
			featNames = append(featNames, name)
		}
	}
	if len(featIdx) == 0 {
		return nil, nil, nil, errors.New("no feature columns left after removing targets")
	}
	return featIdx, targIdx, featNames, nil
}

// readFile fills rows starting at offset and returns how many it read.
func (t *Table) readFile(path string, header []string, offset int, featIdx, targIdx []int) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	got, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if len(got) != len(header) {
		return 0, fmt.Errorf("%s has %d columns, expected %d", path, len(got), len(header))
	}
	for i := range got {
		if normalizeName(got[i]) != normalizeName(header[i]) {
			return 0, fmt.Errorf("%s: column %d is %q, expected %q", path, i, got[i], header[i])
		}
	}

	n := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read row %d of %s: %w", n, path, err)
		}
		x := t.X.RawRowView(offset + n)
		for j, c := range featIdx {
			if x[j], err = parseFloat(record[c]); err != nil {
				return 0, fmt.Errorf("%s row %d: failed to parse %s: %w", path, n, header[c], err)
			}
		}
		y := t.Y.RawRowView(offset + n)
		for j, c := range targIdx {
			if y[j], err = parseFloat(record[c]); err != nil {
				return 0, fmt.Errorf("%s row %d: failed to parse %s: %w", path, n, header[c], err)
			}
		}
		n++
	}
	return n, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	r, _ := t.X.Dims()
	return r
}

// Subset returns a new table holding the rows at indices, in order.
func (t *Table) Subset(indices []int) (*Table, error) {
	if len(indices) == 0 {
		return nil, errors.New("datasets: empty subset")
	}
	_, p := t.X.Dims()
	_, m := t.Y.Dims()
	out := &Table{
		X:            mat.NewDense(len(indices), p, nil),
		Y:            mat.NewDense(len(indices), m, nil),
		FeatureNames: append([]string(nil), t.FeatureNames...),
		TargetNames:  append([]string(nil), t.TargetNames...),
	}
	for i, idx := range indices {
		if idx < 0 || idx >= t.Len() {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, t.Len())
		}
		out.X.SetRow(i, t.X.RawRowView(idx))
		out.Y.SetRow(i, t.Y.RawRowView(idx))
	}
	return out, nil
}

// Split shuffles the rows with seed and returns a train and a test table.
// The test table gets round(testRatio*Len) rows, clamped so that neither
// side is empty.
func (t *Table) Split(testRatio float64, seed int64) (train, test *Table, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("datasets: test ratio must be in (0, 1), got %g", testRatio)
	}
	n := t.Len()
	if n < 2 {
		return nil, nil, fmt.Errorf("datasets: cannot split %d rows", n)
	}
	nTest := int(math.Round(testRatio * float64(n)))
	nTest = min(max(nTest, 1), n-1)

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	if test, err = t.Subset(perm[:nTest]); err != nil {
		return nil, nil, err
	}
	if train, err = t.Subset(perm[nTest:]); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
