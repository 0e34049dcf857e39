package format

// SumExt is the extension segment appended to the primary path to derive
// the sidecar path.
const SumExt = ".sum"

// SumPath returns the sidecar path for a primary file path by appending
// the ".sum" extension segment to its existing extension chain, e.g.
// "data.idx" becomes "data.idx.sum".
func SumPath(path string) string {
	return path + SumExt
}
