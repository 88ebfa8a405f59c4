package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

const maxDetailDepth = 32

// Kind tags a Detail record.
type Kind int

const (
	KindGeneric Kind = iota
	KindAggregate
	KindFault
	KindTimeout
	KindKeyNotFound
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "Error"
	case KindAggregate:
		return "AggregateError"
	case KindFault:
		return "ServiceFault"
	case KindTimeout:
		return "Timeout"
	case KindKeyNotFound:
		return "KeyNotFound"
	case KindPanic:
		return "Panic"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Detail is a renderable record of one error in a chain.
type Detail struct {
	Kind    Kind
	Type    string
	Message string
	Stack   string
	Fault   *FaultDetail
	Causes  []Detail
}

// FaultDetail carries the host fault fields of a KindFault record.
type FaultDetail struct {
	Timestamp time.Time
	Code      int
	Message   string
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

type panicker interface {
	PanicValue() any
	StackText() string
}

type timeouter interface {
	Timeout() bool
}

// Describe converts err and everything it wraps into Detail records.
func Describe(err error) Detail {
	return describe(err, 0)
}

func describe(err error, depth int) Detail {
	d := Detail{
		Kind:    KindGeneric,
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}

	switch e := err.(type) {
	case *xrm.ServiceFault:
		d.Kind = KindFault
		d.Fault = &FaultDetail{Timestamp: e.Timestamp, Code: e.ErrorCode, Message: e.Message}
	case panicker:
		d.Kind = KindPanic
		d.Stack = e.StackText()
	case stackTracer:
		d.Stack = strings.TrimPrefix(fmt.Sprintf("%+v", e.StackTrace()), "\n")
	}
	if d.Kind == KindGeneric {
		switch {
		case err == xrm.ErrKeyNotFound:
			d.Kind = KindKeyNotFound
		case err == context.DeadlineExceeded:
			d.Kind = KindTimeout
		default:
			if t, ok := err.(timeouter); ok && t.Timeout() {
				d.Kind = KindTimeout
			}
		}
	}

	if depth >= maxDetailDepth {
		return d
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		members := u.Unwrap()
		if d.Kind == KindGeneric {
			d.Kind = KindAggregate
		}
		for _, m := range members {
			if m != nil {
				d.Causes = append(d.Causes, describe(m, depth+1))
			}
		}
	default:
		if inner := errors.Unwrap(err); inner != nil {
			d.Causes = append(d.Causes, describe(inner, depth+1))
		}
	}
	return d
}

// Render prints d and its causes as an indented block.
func Render(d Detail) string {
	var sb strings.Builder
	sb.WriteString("Error Detail\n")
	render(&sb, d, "")
	return strings.TrimRight(sb.String(), "\n")
}

func render(sb *strings.Builder, d Detail, indent string) {
	fmt.Fprintf(sb, "%sKind: %s\n", indent, d.Kind)
	fmt.Fprintf(sb, "%sType: %s\n", indent, d.Type)
	fmt.Fprintf(sb, "%sMessage: %s\n", indent, d.Message)

	if d.Fault != nil {
		fmt.Fprintf(sb, "%sTimestamp: %s\n", indent, d.Fault.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(sb, "%sCode: %#x\n", indent, d.Fault.Code)
	}

	stack := d.Stack
	if stack == "" {
		stack = "(None)"
	}
	fmt.Fprintf(sb, "%sStack Trace: %s\n", indent, strings.ReplaceAll(stack, "\n", "\n"+indent+"  "))

	if d.Kind == KindAggregate {
		fmt.Fprintf(sb, "%sAggregate Errors (%d)\n", indent, len(d.Causes))
	} else if len(d.Causes) == 0 {
		fmt.Fprintf(sb, "%sInner Fault: (No Inner Error)\n", indent)
	} else {
		fmt.Fprintf(sb, "%sInner Fault: %s\n", indent, d.Causes[0].Message)
	}

	for _, c := range d.Causes {
		render(sb, c, indent+"   ")
	}
}
