package syncfile

import (
	"io"
	"sync"
)

// MultiReaderAt is implemented by sources with a specialized way to read
// several regions at once.
type MultiReaderAt interface {
	MultiReadAt(ops []Op)
}

// Op is a single region read submitted to MultiReadAt.
type Op struct {
	// Data is the destination buffer. After MultiReadAt returns, its length
	// is adjusted to the number of bytes read.
	Data []byte

	// Off is the offset at which the region starts.
	Off int64

	// Err is nil if the region was read completely, io.ErrUnexpectedEOF if
	// the source ended first, or the error that stopped the read.
	Err error
}

// MultiReadAt reads every region described by ops.
//
// If r implements MultiReaderAt the call is delegated. In-memory sources are
// read in sequence; other sources get one goroutine per operation, which is
// safe because positional reads do not share a cursor.
func MultiReadAt(r ReaderAt, ops []Op) {
	switch f := r.(type) {
	case MultiReaderAt:
		f.MultiReadAt(ops)
	case Bytes, FixedBuffer, *Buffer, *CowBuffer:
		sequentialMultiReadAt(f, ops)
	default:
		parallelMultiReadAt(f, ops)
	}
}

func sequentialMultiReadAt(r ReaderAt, ops []Op) {
	for i := range ops {
		readOp(r, &ops[i])
	}
}

func parallelMultiReadAt(r ReaderAt, ops []Op) {
	wg := sync.WaitGroup{}
	wg.Add(len(ops))
	defer wg.Wait()

	for i := range ops {
		go func(op *Op) {
			defer wg.Done()
			readOp(r, op)
		}(&ops[i])
	}
}

func readOp(r ReaderAt, op *Op) {
	n := 0
	for n < len(op.Data) {
		rn, err := r.ReadAt(op.Data[n:], op.Off+int64(n))
		n += rn
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			if n < len(op.Data) {
				op.Err = normalizeEOF(err)
			}
			break
		}
		if rn == 0 {
			op.Err = normalizeEOF(nil)
			break
		}
	}
	op.Data = op.Data[:n]
}

func normalizeEOF(err error) error {
	if err == nil || err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
