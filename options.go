package memarena

import (
	"log"

	"github.com/hupe1980/memarena/internal/arena"
)

// DefaultFormatBufferSize is the capacity of the buffer Sprintf allocates.
const DefaultFormatBufferSize = 8192

// FatalHandler receives every failure while strict mode is on. The error
// carries a stack trace; format it with %+v to see it. A handler that
// returns lets the failing call return the error as usual.
type FatalHandler func(err error)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	verbosity        int
	strict           bool
	fatal            FatalHandler
	heapStore        arena.Store
	mappedStore      arena.Store
	memoryLimit      int64
	formatBufferSize int
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger used for diagnostics and Summary output.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the collector notified of every allocation and release.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithVerbosity sets the threshold Summary levels are compared against.
// A Summary call with level <= verbosity is emitted.
func WithVerbosity(v int) Option {
	return func(o *options) {
		o.verbosity = v
	}
}

// WithStrict turns every failed operation into a call of the fatal handler.
// By default the handler logs the error with its stack and exits.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithFatalHandler replaces the handler used in strict mode.
func WithFatalHandler(h FatalHandler) Option {
	return func(o *options) {
		if h == nil {
			h = defaultFatal
		}
		o.fatal = h
	}
}

// WithMemoryLimit bounds the bytes (headers included) held by all arenas of
// the Manager. Allocations beyond the limit fail with ErrOutOfMemory.
// Zero or negative means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithHeapStore replaces the store used for ordinary allocations.
func WithHeapStore(s arena.Store) Option {
	return func(o *options) {
		if s != nil {
			o.heapStore = s
		}
	}
}

// WithMappedStore replaces the store used for Shared allocations.
func WithMappedStore(s arena.Store) Option {
	return func(o *options) {
		if s != nil {
			o.mappedStore = s
		}
	}
}

// WithFormatBufferSize sets the capacity of the buffer Sprintf allocates.
// Values below 1 are ignored.
func WithFormatBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.formatBufferSize = n
		}
	}
}

func defaultFatal(err error) {
	log.Fatalf("%+v", err)
}

func applyOptions(optFns ...Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fatal:            defaultFatal,
		heapStore:        arena.HeapStore{},
		mappedStore:      arena.MappedStore{},
		formatBufferSize: DefaultFormatBufferSize,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
