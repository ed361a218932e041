package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sblosser/bdiff"
	"github.com/sblosser/bdiff/internal/observability"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: bdiff [global options] <command> [options] <args>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  sig   [-block-size N] [-progress] <basis> <sigfile>     write block signature of basis")
	fmt.Fprintln(os.Stderr, "  delta [-progress] <sigfile> <newfile> <deltafile>       compute delta from signature and new file")
	fmt.Fprintln(os.Stderr, "  patch [-progress] <basis> <deltafile> <newfile>         reconstruct new file from basis and delta")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Global options:")
	flag.PrintDefaults()
}

func main() {
	verbose := flag.Bool("v", false, "Enable debug logging")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	log := observability.NewLogger("bdiff", zerolog.ConsoleWriter{Out: os.Stderr}, *verbose)
	log = log.WithOperation(flag.Arg(0), uuid.New().String())

	var metrics *observability.Metrics
	if *metricsAddr != "" {
		metrics = observability.NewMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error(err, "metrics listener failed")
			}
		}()
		log.Debug("serving metrics on " + *metricsAddr)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	start := time.Now()
	var err error
	switch cmd {
	case "sig":
		err = runSig(args, log, metrics)
	case "delta":
		err = runDelta(args, log, metrics)
	case "patch":
		err = runPatch(args, log, metrics)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if metrics != nil {
		metrics.RecordOperation(cmd, err == nil, time.Since(start).Seconds())
	}
	if err != nil {
		log.Error(err, cmd+" failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy to distinct exit codes so callers
// can tell "regenerate your inputs" from "wrong basis file" from plain
// I/O trouble.
func exitCode(err error) int {
	switch {
	case errors.Is(err, bdiff.ErrFormat):
		return 2
	case errors.Is(err, bdiff.ErrCorruptSignature), errors.Is(err, bdiff.ErrCorruptDelta):
		return 3
	case errors.Is(err, bdiff.ErrBasisMismatch):
		return 4
	case errors.Is(err, bdiff.ErrChecksumMismatch):
		return 5
	default:
		return 1
	}
}

func runSig(args []string, log *observability.Logger, metrics *observability.Metrics) error {
	fs := flag.NewFlagSet("sig", flag.ExitOnError)
	blockSize := fs.Int("block-size", bdiff.DefaultBlockSize, "Block size in bytes")
	progress := fs.Bool("progress", false, "Show a progress bar")
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: bdiff sig [-block-size N] [-progress] <basis> <sigfile>")
		os.Exit(1)
	}

	basis, bar, err := openInput(fs.Arg(0), *progress)
	if err != nil {
		return err
	}
	defer basis.Close()

	start := time.Now()
	var stats bdiff.SignatureStats
	err = writeAtomic(fs.Arg(1), func(w io.Writer) error {
		var serr error
		stats, serr = bdiff.Signature(reader(basis, bar), w, *blockSize)
		return serr
	})
	finishBar(bar)
	if err != nil {
		return err
	}

	if metrics != nil {
		metrics.RecordSignature(stats.BasisBytes)
	}
	log.SignatureDone(stats.Blocks, stats.BasisBytes, *blockSize, time.Since(start))
	return nil
}

func runDelta(args []string, log *observability.Logger, metrics *observability.Metrics) error {
	fs := flag.NewFlagSet("delta", flag.ExitOnError)
	progress := fs.Bool("progress", false, "Show a progress bar")
	fs.Parse(args)
	if fs.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "Usage: bdiff delta [-progress] <sigfile> <newfile> <deltafile>")
		os.Exit(1)
	}

	sig, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	newFile, bar, err := openInput(fs.Arg(1), *progress)
	if err != nil {
		return err
	}
	defer newFile.Close()

	start := time.Now()
	var stats bdiff.DeltaStats
	err = writeAtomic(fs.Arg(2), func(w io.Writer) error {
		var derr error
		stats, derr = bdiff.Delta(sig, reader(newFile, bar), w)
		return derr
	})
	finishBar(bar)
	if err != nil {
		return err
	}

	if metrics != nil {
		metrics.RecordDelta(stats.NewBytes, stats.LiteralBytes, stats.BlocksMatched)
	}
	log.DeltaDone(stats.NewBytes, stats.LiteralBytes, stats.CopyOps, stats.LiteralOps, stats.BlocksMatched, time.Since(start))
	return nil
}

func runPatch(args []string, log *observability.Logger, metrics *observability.Metrics) error {
	fs := flag.NewFlagSet("patch", flag.ExitOnError)
	progress := fs.Bool("progress", false, "Show a progress bar")
	fs.Parse(args)
	if fs.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "Usage: bdiff patch [-progress] <basis> <deltafile> <newfile>")
		os.Exit(1)
	}

	basis, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open basis: %w", err)
	}
	defer basis.Close()

	dlt, bar, err := openInput(fs.Arg(1), *progress)
	if err != nil {
		return err
	}
	defer dlt.Close()

	start := time.Now()
	var stats bdiff.PatchStats
	err = writeAtomic(fs.Arg(2), func(w io.Writer) error {
		var perr error
		stats, perr = bdiff.Patch(basis, reader(dlt, bar), w)
		return perr
	})
	finishBar(bar)
	if err != nil {
		return err
	}

	if metrics != nil {
		metrics.RecordPatch(stats.BytesWritten)
	}
	log.PatchDone(stats.BytesWritten, stats.CopiedBytes, stats.LiteralBytes, time.Since(start))
	return nil
}

// openInput opens path and, when requested, a byte progress bar sized
// from the file.
func openInput(path string, progress bool) (*os.File, *pb.ProgressBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !progress {
		return f, nil, nil
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	bar := pb.New64(info.Size()).SetUnits(pb.U_BYTES)
	bar.Output = os.Stderr
	bar.Start()
	return f, bar, nil
}

func reader(f *os.File, bar *pb.ProgressBar) io.Reader {
	if bar == nil {
		return f
	}
	return bar.NewProxyReader(f)
}

func finishBar(bar *pb.ProgressBar) {
	if bar != nil {
		bar.Finish()
	}
}

// writeAtomic writes through a temp file in the destination directory
// and renames it into place only on success, so a failed operation
// never leaves a partial file that looks complete.
func writeAtomic(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bdiff-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := fn(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		tmp = nil
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		tmp = nil
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	tmp = nil
	return nil
}
