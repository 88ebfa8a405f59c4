package xrm

import (
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is raised by host collections when a required key is absent.
var ErrKeyNotFound = errors.New("the given key was not present in the collection")

// TracingService is the host-provided trace sink.
type TracingService interface {
	Trace(format string, args ...any)
}

// TracingFunc adapts a function to TracingService.
type TracingFunc func(format string, args ...any)

func (f TracingFunc) Trace(format string, args ...any) { f(format, args...) }

// ServiceProvider is what the host hands the framework on each invocation.
type ServiceProvider interface {
	TracingService() TracingService
	ExecutionContext() *ExecutionContext
}

// Services is a plain ServiceProvider.
type Services struct {
	Tracing TracingService
	Context *ExecutionContext
}

func (s Services) TracingService() TracingService      { return s.Tracing }
func (s Services) ExecutionContext() *ExecutionContext { return s.Context }

// ServiceFault is a fault returned by host organization services.
type ServiceFault struct {
	Timestamp  time.Time
	ErrorCode  int
	Message    string
	InnerFault *ServiceFault
}

func (f *ServiceFault) Error() string {
	return fmt.Sprintf("service fault %#x: %s", f.ErrorCode, f.Message)
}

func (f *ServiceFault) Unwrap() error {
	if f.InnerFault == nil {
		return nil
	}
	return f.InnerFault
}
