package schema

import "strings"

// ColumnKind identifies a renderable CSV column. The set is closed; new
// kinds require a new constant, a name-map entry, and a rendering case.
type ColumnKind int

const (
	// Empty renders a blank field. It is also the fallback for schema
	// names that match no known kind.
	Empty ColumnKind = iota
	BuildId
	Machine
	PreciseTimeStamp
	ThreadId
	ProcessId
	LogLevel
	LogLevelFriendly
	Service
	Message
	OsPlatform
	OsVersion
)

// kindNames maps lowercase column names to kinds. Kept as an explicit
// literal rather than derived via reflection so the lookup set is visible
// in one place.
var kindNames = map[string]ColumnKind{
	"empty":            Empty,
	"buildid":          BuildId,
	"machine":          Machine,
	"precisetimestamp": PreciseTimeStamp,
	"threadid":         ThreadId,
	"processid":        ProcessId,
	"loglevel":         LogLevel,
	"loglevelfriendly": LogLevelFriendly,
	"service":          Service,
	"message":          Message,
	"osplatform":       OsPlatform,
	"osversion":        OsVersion,
}

// String returns the canonical column name.
func (k ColumnKind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case BuildId:
		return "BuildId"
	case Machine:
		return "Machine"
	case PreciseTimeStamp:
		return "PreciseTimeStamp"
	case ThreadId:
		return "ThreadId"
	case ProcessId:
		return "ProcessId"
	case LogLevel:
		return "LogLevel"
	case LogLevelFriendly:
		return "LogLevelFriendly"
	case Service:
		return "Service"
	case Message:
		return "Message"
	case OsPlatform:
		return "OsPlatform"
	case OsVersion:
		return "OsVersion"
	default:
		return "Empty"
	}
}

// KindFromName resolves a column name case-insensitively. Unknown names
// resolve to Empty; the schema language is deliberately permissive so
// columns added for other consumers degrade to blank output here.
func KindFromName(name string) ColumnKind {
	if k, ok := kindNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	return Empty
}

// Parse turns a schema specification into an ordered column list.
//
// The specification is a comma-separated sequence of descriptors of the
// form "Name" or "Name:Type"; the type annotation exists for compatibility
// with external schema declarations and is ignored here. Names are trimmed
// and matched case-insensitively. Empty or whitespace-only input yields an
// empty list. Parse never fails.
func Parse(spec string) []ColumnKind {
	if strings.TrimSpace(spec) == "" {
		return nil
	}

	descriptors := strings.Split(spec, ",")
	kinds := make([]ColumnKind, 0, len(descriptors))
	for _, d := range descriptors {
		name := d
		if i := strings.Index(d, ":"); i >= 0 {
			name = d[:i]
		}
		kinds = append(kinds, KindFromName(name))
	}

	return kinds
}
