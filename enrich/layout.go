package enrich

import "fmt"

// Width returns the number of columns Enrich produces for a reference with
// nFeatures feature columns and nTargets target columns.
func Width(nFeatures, nTargets int, spatialCols []int, opts Options) int {
	neighbor := len(keptColumns(nFeatures, spatialCols, opts.RemoveNeighborSpatialCols))
	target := len(keptColumns(nFeatures, spatialCols, opts.RemoveTargetSpatialCols))
	return target + opts.NNeighbors*(neighbor+1+nTargets)
}

// ColumnNames names the widened columns in output order. Neighbour block
// columns are prefixed with their 1-based rank, e.g. "n1_x", "n1_weight",
// "n1_price". Missing names fall back to "x<i>" and "y<i>".
func ColumnNames(featureNames, targetNames []string, spatialCols []int, opts Options) []string {
	nf, nt := len(featureNames), len(targetNames)
	neighborCols := keptColumns(nf, spatialCols, opts.RemoveNeighborSpatialCols)
	targetCols := keptColumns(nf, spatialCols, opts.RemoveTargetSpatialCols)

	names := make([]string, 0, Width(nf, nt, spatialCols, opts))
	for _, j := range targetCols {
		names = append(names, nameOr(featureNames[j], "x", j))
	}
	for rank := 1; rank <= opts.NNeighbors; rank++ {
		for _, j := range neighborCols {
			names = append(names, fmt.Sprintf("n%d_%s", rank, nameOr(featureNames[j], "x", j)))
		}
		names = append(names, fmt.Sprintf("n%d_weight", rank))
		for j := 0; j < nt; j++ {
			names = append(names, fmt.Sprintf("n%d_%s", rank, nameOr(targetNames[j], "y", j)))
		}
	}
	return names
}

func nameOr(name, prefix string, i int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s%d", prefix, i)
}
