// Package datasets loads tabular data for the booster and its CLI.
//
// A Table is read from one or more CSV files that share a header. Columns
// are picked by name: the target columns become Y and the feature columns
// (every other column unless listed explicitly) become X, both as gonum
// matrices so they can be handed straight to a Booster.
//
// Notes on gomlx tensors:
//   - MatrixTensor and TensorMatrix convert between gonum matrices and
//     float64 gomlx tensors of shape [rows, cols].
//   - SaveTensor writes .npy files with gomlx's numpy package so NumPy can
//     np.load them; other tensor paths use gomlx's gob encoding.
//
// Layout:
//
//	LoadCSV          CSV file, directory or glob -> *Table
//	Table.Split      deterministic shuffled train/test split
//	WriteMatrixFile  matrix -> .csv, .gob, .npy or .tensor by extension
//	ReadMatrixFile   any of the above -> matrix
//	SaveMatrix       matrix -> versioned gob file (atomic)
//	SaveTensor       matrix -> gomlx tensor file (atomic)
package datasets
