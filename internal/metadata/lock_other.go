//go:build !unix

package metadata

// lockFile is a no-op where flock is unavailable; the in-process mutex still
// serializes writers.
func lockFile(string) (func() error, error) {
	return func() error { return nil }, nil
}
