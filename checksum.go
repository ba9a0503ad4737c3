package syncfile

import (
	"crypto/md5"  //nolint:gosec // MD5 used for checksum verification, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for checksum verification, not security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	// ChecksumMD5 is the MD5 hash algorithm (128-bit, fast but not cryptographically secure)
	ChecksumMD5 ChecksumAlgorithm = "md5"
	// ChecksumSHA1 is the SHA-1 hash algorithm (160-bit, legacy)
	ChecksumSHA1 ChecksumAlgorithm = "sha1"
	// ChecksumSHA256 is the SHA-256 hash algorithm (256-bit, recommended)
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumSHA512 is the SHA-512 hash algorithm (512-bit, most secure)
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	// ChecksumCRC32 is the CRC32 checksum (32-bit, fastest, for integrity only)
	ChecksumCRC32 ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is the xxHash algorithm (64-bit, extremely fast)
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// NewHasher creates a new hash.Hash for the given algorithm.
// Returns an error if the algorithm is not supported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumMD5:
		return md5.New(), nil //nolint:gosec // MD5 used for checksum verification, not security
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec // SHA1 used for checksum verification, not security
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, algorithm)
	}
}

// Checksum hashes the whole of a bounded source. Returns the hex-encoded
// checksum string.
func Checksum(src SizeReaderAt, algorithm ChecksumAlgorithm) (string, error) {
	return ChecksumRange(src, 0, src.Size(), algorithm)
}

// ChecksumRange hashes n bytes of src starting at off. The source is read
// through its own Adapter, so concurrent checksums of one source do not
// interfere. It fails with io.ErrUnexpectedEOF if the range runs past the
// end of the source.
func ChecksumRange(src ReaderAt, off, n int64, algorithm ChecksumAlgorithm) (string, error) {
	if off < 0 || n < 0 {
		return "", ErrInvalidOffset
	}

	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}

	r := NewAdapter(src)
	r.SetOffset(uint64(off))

	copied, err := io.Copy(h, io.LimitReader(r, n))
	if err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	if copied < n {
		return "", fmt.Errorf("failed to calculate checksum: %w", io.ErrUnexpectedEOF)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Checksums hashes a bounded source with several algorithms in a single
// pass. Returns a map of algorithm to hex-encoded checksum.
func Checksums(src SizeReaderAt, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if len(algorithms) == 0 {
		return nil, errors.New("no algorithms specified")
	}

	// Create hashers for each algorithm
	hashers := make(map[ChecksumAlgorithm]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))

	for _, algo := range algorithms {
		h, err := NewHasher(algo)
		if err != nil {
			return nil, err
		}
		hashers[algo] = h
		writers = append(writers, h)
	}

	// Read the content once, writing to all hashers
	r := io.LimitReader(NewAdapter(src), src.Size())
	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}

	results := make(map[ChecksumAlgorithm]string, len(algorithms))
	for algo, h := range hashers {
		results[algo] = hex.EncodeToString(h.Sum(nil))
	}

	return results, nil
}

// VerifyChecksum hashes src and reports whether it matches expected.
func VerifyChecksum(src SizeReaderAt, expected string, algorithm ChecksumAlgorithm) (bool, error) {
	actual, err := Checksum(src, algorithm)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}
