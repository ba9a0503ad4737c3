// Command syncfile reads, hashes and copies files through a syncfile driver.
//
// The driver and its settings come from BEAVER_SYNCFILE_* environment
// variables:
//
//	BEAVER_SYNCFILE_DRIVER=local BEAVER_SYNCFILE_LOCAL_BASE_PATH=/srv/data \
//	    syncfile checksum -algo sha256 reports/2024.csv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/gobeaver/syncfile"
	_ "github.com/gobeaver/syncfile/driver/billy"
	_ "github.com/gobeaver/syncfile/driver/local"
	_ "github.com/gobeaver/syncfile/driver/memory"
	_ "github.com/gobeaver/syncfile/driver/mmap"
	_ "github.com/gobeaver/syncfile/driver/s3"
	_ "github.com/gobeaver/syncfile/driver/sftp"
)

const usage = `usage: syncfile <command> [flags] [args]

commands:
  cat       write a file, or a range of it, to stdout
  checksum  print the checksum of a file
  copy      copy a file with parallel positional transfers
  stat      print file metadata
  list      list files, optionally filtered by a glob
  drivers   list the registered drivers
`

type command func(env *environment, args []string) error

var commands = map[string]command{
	"cat":      runCat,
	"checksum": runChecksum,
	"copy":     runCopy,
	"stat":     runStat,
	"list":     runList,
	"drivers":  runDrivers,
}

// environment carries what every command needs.
type environment struct {
	cfg    *syncfile.Config
	drv    syncfile.Driver
	logger *zap.Logger
	stdout io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "syncfile: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	cfg, err := syncfile.GetConfig()
	if err != nil {
		fmt.Fprintf(stderr, "syncfile: load config: %v\n", err)
		return 1
	}
	logger, err := syncfile.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "syncfile: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	env := &environment{cfg: cfg, logger: logger, stdout: stdout}
	if args[0] != "drivers" {
		env.drv, err = syncfile.New(cfg, syncfile.WithLogger(logger))
		if err != nil {
			logger.Error("create driver", zap.String("driver", cfg.Driver), zap.Error(err))
			return 1
		}
	}

	if err := cmd(env, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		return 1
	}
	return 0
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("syncfile "+name, flag.ContinueOnError)
}

func requireArgs(fs *flag.FlagSet, n int) error {
	if fs.NArg() != n {
		fs.Usage()
		return fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), n, fs.NArg())
	}
	return nil
}

func runCat(env *environment, args []string) error {
	fs := newFlagSet("cat")
	off := fs.Int64("offset", 0, "start offset")
	n := fs.Int64("n", -1, "number of bytes, -1 for the rest of the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	f, err := env.drv.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	length := *n
	if length < 0 {
		length = f.Size() - *off
	}
	if length < 0 {
		return &syncfile.PathError{Op: "cat", Path: fs.Arg(0), Err: syncfile.ErrInvalidOffset}
	}

	_, err = io.Copy(env.stdout, io.NewSectionReader(f, *off, length))
	return err
}

func runChecksum(env *environment, args []string) error {
	fs := newFlagSet("checksum")
	algo := fs.String("algo", env.cfg.ChecksumAlgorithm, "md5, sha1, sha256, sha512, crc32 or xxhash")
	verify := fs.String("verify", "", "expected checksum; exit non-zero on mismatch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	name := fs.Arg(0)
	f, err := env.drv.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	algorithm := syncfile.ChecksumAlgorithm(*algo)
	if *verify != "" {
		ok, err := syncfile.VerifyChecksum(f, *verify, algorithm)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %s checksum mismatch", name, algorithm)
		}
		fmt.Fprintf(env.stdout, "%s: OK\n", name)
		return nil
	}

	sum, err := syncfile.Checksum(f, algorithm)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "%s  %s\n", sum, name)
	return nil
}

func runCopy(env *environment, args []string) error {
	fs := newFlagSet("copy")
	chunk := fs.Int("chunk", env.cfg.ChunkSize, "bytes per transfer")
	workers := fs.Int("concurrency", env.cfg.Concurrency, "parallel transfers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 2); err != nil {
		return err
	}

	srcName, dstName := fs.Arg(0), fs.Arg(1)
	src, err := env.drv.Open(srcName)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := env.drv.Create(dstName)
	if err != nil {
		return err
	}

	start := time.Now()
	size := src.Size()
	if err := syncfile.CopyAt(dst, 0, src, 0, size, *chunk, *workers); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dstName, err)
	}

	env.logger.Info("copied",
		zap.String("src", srcName),
		zap.String("dst", dstName),
		zap.Int64("bytes", size),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func runStat(env *environment, args []string) error {
	fs := newFlagSet("stat")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	name := fs.Arg(0)

	if stater, ok := unwrap(env.drv).(syncfile.CanStat); ok {
		info, err := stater.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.stdout, "name:     %s\n", info.Name)
		fmt.Fprintf(env.stdout, "size:     %d\n", info.Size)
		fmt.Fprintf(env.stdout, "modified: %s\n", info.ModTime.Format(time.RFC3339))
		if info.CreatedAt != nil {
			fmt.Fprintf(env.stdout, "created:  %s\n", info.CreatedAt.Format(time.RFC3339))
		}
		if info.Owner != nil {
			fmt.Fprintf(env.stdout, "owner:    %s\n", info.Owner.ID)
		}
		return nil
	}

	f, err := env.drv.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintf(env.stdout, "name:     %s\n", name)
	fmt.Fprintf(env.stdout, "size:     %d\n", f.Size())
	return nil
}

func runList(env *environment, args []string) error {
	fs := newFlagSet("list")
	pattern := fs.String("glob", "", "only list names matching this pattern")
	depth := fs.Int("depth", -1, "maximum directory depth, -1 for unlimited")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireArgs(fs, 0); err != nil {
		return err
	}

	var sels []syncfile.Selector
	if *pattern != "" {
		g, err := syncfile.Glob(*pattern)
		if err != nil {
			return err
		}
		sels = append(sels, g)
	}
	if *depth >= 0 {
		sels = append(sels, syncfile.Depth(*depth))
	}

	names, err := syncfile.Select(unwrap(env.drv), syncfile.And(sels...))
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(env.stdout, name)
	}
	return nil
}

func runDrivers(env *environment, args []string) error {
	for _, name := range syncfile.Drivers() {
		fmt.Fprintln(env.stdout, name)
	}
	return nil
}

// unwrap returns the driver beneath the defaults applied by syncfile.New,
// which is where the optional capabilities live.
func unwrap(drv syncfile.Driver) syncfile.Driver {
	if u, ok := drv.(interface{ Unwrap() syncfile.Driver }); ok {
		return u.Unwrap()
	}
	return drv
}
