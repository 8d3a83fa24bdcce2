//go:build !linux

package artifacts

func renameNoReplace(from, to string) error {
	return renameReserved(from, to)
}
