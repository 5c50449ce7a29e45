package schema

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// HostFacts holds the environment values that back the constant columns.
// Captured once at construction time and injected explicitly so rendering
// stays deterministic under test.
type HostFacts struct {
	Machine    string
	OsPlatform string
	OsVersion  string
}

// CaptureHostFacts reads the host facts from the running environment.
func CaptureHostFacts() HostFacts {
	machine, err := os.Hostname()
	if err != nil {
		machine = "unknown"
	}

	return HostFacts{
		Machine:    machine,
		OsPlatform: runtime.GOOS,
		OsVersion:  osVersion(),
	}
}

// osVersion probes the kernel release where the platform exposes one.
func osVersion() string {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return runtime.GOARCH
}

// ResolveBuildID returns the supplied build id when non-empty, otherwise a
// freshly generated random identifier for this run.
func ResolveBuildID(supplied string) string {
	if supplied != "" {
		return supplied
	}
	return uuid.NewString()
}

// Constants is the constant-value table: the subset of column kinds whose
// value is fixed for the lifetime of a renderer. Built once, never mutated.
type Constants struct {
	values map[ColumnKind]string
}

// NewConstants builds the constant-value table from host facts, the
// caller's service name, and the resolved build id.
func NewConstants(facts HostFacts, service, buildID string) *Constants {
	return &Constants{
		values: map[ColumnKind]string{
			Empty:      "",
			BuildId:    buildID,
			Machine:    facts.Machine,
			Service:    service,
			OsPlatform: facts.OsPlatform,
			OsVersion:  facts.OsVersion,
		},
	}
}

// IsConstant reports whether kind has a fixed value for this run.
func (c *Constants) IsConstant(kind ColumnKind) bool {
	_, ok := c.values[kind]
	return ok
}

// Value returns the fixed value for a constant kind. Callers must check
// IsConstant first; asking for a dynamic kind is a programming error and
// panics rather than returning a silently wrong value.
func (c *Constants) Value(kind ColumnKind) string {
	v, ok := c.values[kind]
	if !ok {
		panic(fmt.Sprintf("schema: kind %s has no constant value", kind))
	}
	return v
}
