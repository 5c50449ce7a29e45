package writer

import (
	"time"

	"github.com/therealutkarshpriyadarshi/csvlog/internal/metrics"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/render"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/schema"
	"github.com/therealutkarshpriyadarshi/csvlog/internal/sink"
	"github.com/therealutkarshpriyadarshi/csvlog/pkg/types"
)

// Config holds everything needed to construct a Writer.
type Config struct {
	// SchemaSpec is the textual column specification; ignored when
	// Columns is set explicitly.
	SchemaSpec string
	Columns    []schema.ColumnKind

	// RenderConstants controls whether constant columns appear in every
	// line or are suppressed.
	RenderConstants bool

	// MinLevel is the severity floor; events strictly below it are
	// discarded without rendering.
	MinLevel types.Level

	// Service names the calling service for the Service column.
	Service string

	// BuildID identifies this run; generated when empty.
	BuildID string

	// Sink configures the rotating file sink.
	Sink sink.FileConfig
}

// Writer renders qualifying log events and hands the lines to its sink.
// All state is fixed at construction; Write is safe for concurrent use to
// the extent the sink is.
type Writer struct {
	renderer  *render.Renderer
	sink      sink.Sink
	minLevel  types.Level
	collector *metrics.Collector
}

// New assembles a Writer from an already-built renderer and sink.
// collector may be nil.
func New(renderer *render.Renderer, s sink.Sink, minLevel types.Level, collector *metrics.Collector) *Writer {
	return &Writer{
		renderer:  renderer,
		sink:      s,
		minLevel:  minLevel,
		collector: collector,
	}
}

// Open constructs a Writer end to end: resolves the build id, captures
// host facts for the constant table, parses the schema, and opens the file
// sink. collector may be nil.
func Open(cfg Config, collector *metrics.Collector) (*Writer, error) {
	columns := cfg.Columns
	if columns == nil {
		columns = schema.Parse(cfg.SchemaSpec)
	}

	constants := schema.NewConstants(
		schema.CaptureHostFacts(),
		cfg.Service,
		schema.ResolveBuildID(cfg.BuildID),
	)
	renderer := render.New(columns, constants, cfg.RenderConstants)

	fileSink, err := sink.NewFile(cfg.Sink)
	if err != nil {
		return nil, err
	}

	return New(renderer, fileSink, cfg.MinLevel, collector), nil
}

// Renderer exposes the underlying renderer, mainly so callers can inspect
// the file and suppressed schemas.
func (w *Writer) Renderer() *render.Renderer {
	return w.renderer
}

// Sink exposes the underlying sink for stats polling.
func (w *Writer) Sink() sink.Sink {
	return w.sink
}

// Write renders one event and appends it via the sink. Events strictly
// below the minimum severity are a silent no-op. Sink errors propagate
// unchanged; there is no buffering or retry here.
func (w *Writer) Write(ev types.LogEvent) error {
	if ev.Level < w.minLevel {
		if w.collector != nil {
			w.collector.EventsDropped.Inc()
		}
		return nil
	}

	start := time.Now()
	line := w.renderer.RenderMessage(ev)
	if w.collector != nil {
		w.collector.RenderSeconds.Observe(time.Since(start).Seconds())
	}

	if err := w.sink.WriteLine(ev.Level, line); err != nil {
		if w.collector != nil {
			w.collector.SinkErrors.Inc()
		}
		return err
	}

	if w.collector != nil {
		w.collector.EventsWritten.WithLabelValues(ev.Level.String()).Inc()
		w.collector.BytesWritten.Add(float64(len(line) + 1))
	}

	return nil
}

// Flush flushes the underlying sink.
func (w *Writer) Flush() error {
	return w.sink.Flush()
}

// Close closes the underlying sink.
func (w *Writer) Close() error {
	return w.sink.Close()
}
