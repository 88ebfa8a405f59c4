package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/thinkcrm/plugincore/internal/xrm"
)

// SinkFunc adapts a function to xrm.TracingService.
type SinkFunc = xrm.TracingFunc

// SlogSink forwards trace lines to slog at info level under the "plugin
// trace" message. The caller prefix, when present, becomes its own attribute.
func SlogSink(logger *slog.Logger, attrs ...slog.Attr) xrm.TracingService {
	if logger == nil {
		logger = slog.Default()
	}
	return xrm.TracingFunc(func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		all := make([]slog.Attr, 0, len(attrs)+2)
		all = append(all, attrs...)
		if caller, msg, ok := strings.Cut(line, "|"); ok && !strings.ContainsAny(caller, " \n") {
			all = append(all, slog.String("caller", caller))
			line = msg
		}
		all = append(all, slog.String("line", line))
		logger.LogAttrs(context.Background(), slog.LevelInfo, "plugin trace", all...)
	})
}

// Recorder keeps every trace line in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) Trace(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) String() string {
	return strings.Join(r.Lines(), "\n")
}

// MultiSink fans each line out to every non-nil sink.
func MultiSink(sinks ...xrm.TracingService) xrm.TracingService {
	live := make([]xrm.TracingService, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return xrm.TracingFunc(func(format string, args ...any) {
		for _, s := range live {
			s.Trace(format, args...)
		}
	})
}
