package syncfile

import (
	"sync"
)

// DefaultChunkSize is the chunk length used by CopyAt when none is given.
const DefaultChunkSize = 1 << 20

// CopyAt copies n bytes from src at srcOff to dst at dstOff, splitting the
// range into chunks copied by up to concurrency goroutines. It returns the
// first error encountered; chunks that were already written stay written.
//
// Both ends are addressed positionally, so dst and src may be clones of the
// same file as long as the ranges do not overlap.
func CopyAt(dst WriterAt, dstOff int64, src ReaderAt, srcOff, n int64, chunkSize, concurrency int) error {
	if dstOff < 0 || srcOff < 0 || n < 0 {
		return ErrInvalidOffset
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	fail := func(err error) {
		mu.Lock()
		if first == nil {
			first = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return first != nil
	}

	chunks := make(chan int64)
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, chunkSize)
			for rel := range chunks {
				size := min(int64(chunkSize), n-rel)
				p := buf[:size]
				if err := ReadFullAt(src, p, srcOff+rel); err != nil {
					fail(err)
					continue
				}
				if err := WriteFullAt(dst, p, dstOff+rel); err != nil {
					fail(err)
				}
			}
		}()
	}

	for rel := int64(0); rel < n && !failed(); rel += int64(chunkSize) {
		chunks <- rel
	}
	close(chunks)
	wg.Wait()

	if first != nil {
		return first
	}
	return Flush(dst)
}
