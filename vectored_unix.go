//go:build unix && !linux && !syncfile_fallback

package syncfile

func (n *nativeIO) readVectoredAt(bufs [][]byte, off int64) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return n.readAt(b, off)
		}
	}
	return 0, nil
}

func (n *nativeIO) writeVectoredAt(bufs [][]byte, off int64) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return n.writeAt(b, off)
		}
	}
	return 0, nil
}
