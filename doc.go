// Package syncfile provides positional file I/O that is safe to share
// between goroutines, plus a small driver layer for opening positional files
// on different storage backends.
//
// The package is built around three capability interfaces: [ReaderAt],
// [WriterAt] and [Sizer]. A value that implements them can be read and
// written at explicit offsets without any hidden cursor, so one value can
// serve many goroutines at once.
//
// # Positional Sources
//
// In-memory sources cover the common cases:
//
//   - [Bytes] is a read-only view of a slice
//   - [FixedBuffer] is a fixed-capacity sink; writes past its end are truncated
//   - [Buffer] grows on write and zero-fills any gap
//   - [CowBuffer] borrows a slice until the first write
//   - [Empty] and [Discard] are the empty source and the null sink
//
// ReadAt and WriteAt may transfer fewer bytes than asked for. Use
// [ReadFullAt] and [WriteFullAt] when every byte matters:
//
//	buf := make([]byte, 16)
//	if err := syncfile.ReadFullAt(src, buf, 128); err != nil {
//	    // io.ErrUnexpectedEOF if the source ended first
//	}
//
// # Files
//
// [RandomAccessFile] owns one OS file. On Unix and Windows, ReadAt and
// WriteAt use the native positional system calls and take no lock. Other
// platforms, and builds with the syncfile_fallback tag, serialize
// seek-then-transfer behind a mutex. [FromSeeker] applies the same locked
// strategy to any io.ReadWriteSeeker.
//
// [SyncFile] adds a private cursor. Each clone keeps its own offset while
// sharing the file:
//
//	f, err := syncfile.OpenSync("data.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	g := f.Clone()
//	go func() {
//	    defer g.Close()
//	    io.Copy(io.Discard, g)
//	}()
//
// [Adapter] gives the same sequential view over any ReaderAt.
//
// # Drivers
//
// A [Driver] opens [File] values by name. Drivers live in sub-packages and
// register themselves with [RegisterDriver]:
//
//   - file: plain OS paths (built in)
//   - Local directory (github.com/gobeaver/syncfile/driver/local)
//   - In-memory (github.com/gobeaver/syncfile/driver/memory)
//   - Memory-mapped files (github.com/gobeaver/syncfile/driver/mmap)
//   - go-billy filesystems (github.com/gobeaver/syncfile/driver/billy)
//   - Amazon S3 (github.com/gobeaver/syncfile/driver/s3)
//   - SFTP (github.com/gobeaver/syncfile/driver/sftp)
//
// Drivers may implement [CanStat], [CanRemove] and [CanList]:
//
//	if s, ok := drv.(syncfile.CanStat); ok {
//	    info, err := s.Stat("data.bin")
//	}
//
// # Mount Manager
//
// The [MountManager] routes names to drivers by longest path prefix:
//
//	mounts := syncfile.NewMountManager()
//	mounts.Mount("/local", localDriver)
//	mounts.Mount("/cloud", s3Driver)
//
//	f, err := mounts.Open("/cloud/image.png")
//	err = mounts.Copy("/local/file.bin", "/cloud/backup/file.bin")
//
// # File Selection
//
// [Select] filters the names of a listable driver:
//
//	names, err := syncfile.Select(drv, syncfile.And(
//	    syncfile.MustGlob("**.bin"),
//	    syncfile.Not(syncfile.MustGlob("tmp/**")),
//	))
//
// # Configuration
//
// [New] builds a driver from a [Config], which can be loaded from
// environment variables with the BEAVER_SYNCFILE_ prefix:
//
//	cfg, err := syncfile.GetConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	drv, err := syncfile.New(cfg)
package syncfile
