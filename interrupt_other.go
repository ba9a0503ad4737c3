//go:build !unix

package syncfile

func isSysInterrupted(error) bool {
	return false
}
