// Command memarena runs an allocation workload against an arena and prints
// what is left in it, or inspects a dump written by an earlier run.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/hupe1980/memarena"
)

var (
	Count       = pflag.IntP("count", "n", 64, "number of allocations")
	Size        = pflag.IntP("size", "s", 256, "maximum allocation size in bytes")
	SharedAlloc = pflag.Bool("shared", false, "back every other allocation by a shared anonymous mapping")
	Verbosity   = pflag.IntP("verbosity", "v", 1, "summary verbosity (0 disables the summary)")
	Strict      = pflag.Bool("strict", false, "exit on the first failed operation")
	Limit       = pflag.Int64("limit", 0, "memory limit in bytes including headers (0 for none)")
	Dump        = pflag.String("dump", "", "write a dump of the arena to this file before it is destroyed")
	Compression = pflag.String("compression", "zstd", "dump compression (none, lz4, zstd)")
	Inspect     = pflag.String("inspect", "", "print the records of a dump file and exit")
	LogJSON     = pflag.Bool("log-json", false, "use json logs")
	Help        = pflag.BoolP("help", "h", false, "show this help text")
)

func main() {
	pflag.Parse()

	if *Help || pflag.NArg() != 0 {
		fmt.Printf("usage: %s [options]\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		if *Help {
			return
		}
		os.Exit(2)
	}

	var handler slog.Handler
	if *LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo})
	}
	logger := memarena.NewLogger(handler)
	slog.SetDefault(logger.Logger)

	var err error
	if *Inspect != "" {
		err = inspect(*Inspect)
	} else {
		err = run(logger)
	}
	if err != nil {
		slog.Error("memarena failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *memarena.Logger) error {
	if *Count < 0 || *Size < 1 {
		return errors.New("count must be >= 0 and size >= 1")
	}
	c, err := memarena.ParseCompression(*Compression)
	if err != nil {
		return err
	}

	metrics := &memarena.BasicMetricsCollector{}
	m := memarena.New(
		memarena.WithLogger(logger),
		memarena.WithMetricsCollector(metrics),
		memarena.WithVerbosity(*Verbosity),
		memarena.WithStrict(*Strict),
		memarena.WithMemoryLimit(*Limit),
	)
	defer m.Close()

	a := m.NewArena()

	ptrs := make([]memarena.Ptr, 0, *Count)
	for i := range *Count {
		var opts []memarena.CallOption
		if *SharedAlloc && i%2 == 1 {
			opts = append(opts, memarena.Shared())
		}
		p, err := m.Alloc(a, i%(*Size)+1, opts...)
		if err != nil {
			return err
		}
		buf, err := m.Bytes(p)
		if err != nil {
			return err
		}
		for j := range buf {
			buf[j] = byte(i)
		}
		ptrs = append(ptrs, p)
	}

	for i := 0; i < len(ptrs); i += 3 {
		if err := m.Free(&ptrs[i]); err != nil {
			return err
		}
	}
	for i := 1; i < len(ptrs); i += 5 {
		if ptrs[i].IsZero() {
			continue
		}
		if ptrs[i], err = m.Realloc(ptrs[i], 2*(*Size)); err != nil {
			return err
		}
	}

	// Allocate next to an existing buffer to exercise pointer contexts.
	var ctx memarena.Context = a
	for _, p := range ptrs {
		if !p.IsZero() {
			ctx = p
			break
		}
	}
	if _, err := m.Strdup(ctx, "memarena"); err != nil {
		return err
	}
	if _, err := m.Sprintf(ctx, "%d allocations of up to %d bytes", *Count, *Size); err != nil {
		return err
	}

	if err := m.Summary(a, 1); err != nil {
		return err
	}

	if *Dump != "" {
		var buf bytes.Buffer
		if err := m.Dump(&buf, a, c); err != nil {
			return err
		}
		if err := os.WriteFile(*Dump, buf.Bytes(), 0o644); err != nil { //nolint:gosec // dumps are not secret
			return fmt.Errorf("write dump: %w", err)
		}
		slog.Info("wrote dump", "path", *Dump, "bytes", buf.Len(), "compression", c.String())
	}

	r, err := m.Report(a)
	if err != nil {
		return err
	}
	if err := m.Destroy(&a); err != nil {
		return err
	}

	s := metrics.GetStats()
	slog.Info("done",
		"live_chunks", len(r.Chunks),
		"live_bytes", r.Total,
		"allocs", s.AllocCount,
		"mapped_allocs", s.MappedAllocCount,
		"frees", s.FreeCount,
		"reallocs", s.ReallocCount,
		"avg_alloc_ns", s.AllocAvgNanos,
	)
	return nil
}

func inspect(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d, err := memarena.ReadDump(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	fmt.Printf("arena %d: %d bytes in %d chunks (%s)\n", d.Arena, d.Total, len(d.Records), d.Compression)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tGEN\tBACKING\tSIZE\tSITE\tPREFIX")
	for _, rec := range d.Records {
		prefix := rec.Data[:min(len(rec.Data), 16)]
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s:%d\t%x\n",
			rec.Slot, rec.Gen, rec.Backing, len(rec.Data), filepath.Base(rec.Site.File), rec.Site.Line, prefix)
	}
	return w.Flush()
}
