package render

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/csvlog/internal/schema"
	"github.com/therealutkarshpriyadarshi/csvlog/pkg/types"
)

// timestampLayout renders as yyyy-MM-dd HH:mm:ss.fff in UTC, locale
// independent, with the milliseconds always present.
const timestampLayout = "2006-01-02 15:04:05.000"

// Renderer turns one log event into one CSV line according to a fixed
// column schema. All state is set at construction; rendering never mutates
// it, so a Renderer is safe for concurrent use.
type Renderer struct {
	fileSchema       []schema.ColumnKind
	suppressedSchema []schema.ColumnKind
	constants        *schema.Constants

	// pid is read per event so the rendered value tracks the live
	// process; injectable for tests.
	pid func() int
}

// New builds a Renderer over the given column list and constant table.
//
// When renderConstants is true every schema column appears in the output
// line. When false, constant columns are suppressed from the line (their
// values never change within a run, so downstream tables can join them in
// once) while remaining queryable via SuppressedSchema.
func New(columns []schema.ColumnKind, constants *schema.Constants, renderConstants bool) *Renderer {
	r := &Renderer{
		constants: constants,
		pid:       os.Getpid,
	}

	if renderConstants {
		r.fileSchema = append(r.fileSchema, columns...)
		return r
	}

	for _, kind := range columns {
		if constants.IsConstant(kind) {
			r.suppressedSchema = append(r.suppressedSchema, kind)
		} else {
			r.fileSchema = append(r.fileSchema, kind)
		}
	}

	return r
}

// FileSchema returns the columns written per line, in output order.
func (r *Renderer) FileSchema() []schema.ColumnKind {
	return r.fileSchema
}

// SuppressedSchema returns the constant columns excluded from the line, in
// schema order.
func (r *Renderer) SuppressedSchema() []schema.ColumnKind {
	return r.suppressedSchema
}

// Constants returns the constant-value table for the suppressed columns.
func (r *Renderer) Constants() *schema.Constants {
	return r.constants
}

// RenderMessage renders one event as an escaped, comma-joined CSV line
// with exactly one field per FileSchema column. An empty schema yields an
// empty string.
func (r *Renderer) RenderMessage(ev types.LogEvent) string {
	var b strings.Builder
	for i, kind := range r.fileSchema {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Escape(r.RenderColumn(kind, ev)))
	}
	return b.String()
}

// RenderColumn computes the raw, unescaped value of a single column.
// Constant kinds come from the table and ignore the event entirely.
// A non-constant kind without a case below means the kind enumeration and
// this dispatch have drifted apart; that is a bug, not a runtime
// condition, and panics.
func (r *Renderer) RenderColumn(kind schema.ColumnKind, ev types.LogEvent) string {
	if r.constants.IsConstant(kind) {
		return r.constants.Value(kind)
	}

	switch kind {
	case schema.PreciseTimeStamp:
		return ev.Timestamp.UTC().Format(timestampLayout)
	case schema.ThreadId:
		return strconv.FormatInt(ev.ThreadID, 10)
	case schema.ProcessId:
		return strconv.Itoa(r.pid())
	case schema.LogLevel:
		return strconv.Itoa(int(ev.Level))
	case schema.LogLevelFriendly:
		return ev.Level.String()
	case schema.Message:
		return ev.Message
	default:
		panic(fmt.Sprintf("render: no rendering case for kind %s", kind))
	}
}

// Escape wraps a raw value for CSV output: the value is enclosed in double
// quotes and embedded double quotes are doubled. Commas and newlines are
// left as-is inside the quoted field, per RFC 4180 quoting.
func Escape(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 2)
	b.WriteByte('"')
	for i := 0; i < len(raw); i++ {
		if raw[i] == '"' {
			b.WriteByte('"')
		}
		b.WriteByte(raw[i])
	}
	b.WriteByte('"')
	return b.String()
}
