// Package validators holds the stock validators handlers declare or add to
// their validation builder.
package validators

import (
	"fmt"
	"slices"
	"strings"

	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// TargetEntity passes when the context's Target is an entity. With
// logicalNames given, the entity must also be one of them.
func TargetEntity(escalate bool, logicalNames ...string) plugin.Validator {
	name := "TargetEntity"
	if len(logicalNames) > 0 {
		name += "(" + strings.Join(logicalNames, ",") + ")"
	}
	return plugin.NewValidator(name, func(ctx *xrm.ExecutionContext) plugin.Verdict {
		raw, ok := ctx.InputParameters.Get(plugin.TargetKey)
		e, isEntity := raw.(*xrm.Entity)
		if !ok || !isEntity || e == nil {
			return verdict(escalate, fmt.Sprintf("Target is not an Entity. Contains: %t / Type: %T", ok, raw))
		}
		if len(logicalNames) > 0 && !slices.Contains(logicalNames, e.LogicalName) {
			return verdict(escalate, fmt.Sprintf("Target entity %s is not one of %v", e.LogicalName, logicalNames))
		}
		return plugin.Pass()
	})
}

// TargetReference passes when the context's Target is an entity reference.
func TargetReference(escalate bool) plugin.Validator {
	return plugin.NewValidator("TargetReference", func(ctx *xrm.ExecutionContext) plugin.Verdict {
		raw, ok := ctx.InputParameters.Get(plugin.TargetKey)
		switch ref := raw.(type) {
		case xrm.EntityReference:
			return plugin.Pass()
		case *xrm.EntityReference:
			if ref != nil {
				return plugin.Pass()
			}
		}
		return verdict(escalate, fmt.Sprintf("Target is not an EntityReference. Contains: %t / Type: %T", ok, raw))
	})
}

// Stage passes when the context runs in the given pipeline stage.
func Stage(stage xrm.PipelineStage, escalate bool) plugin.Validator {
	return plugin.NewValidator("Stage("+stage.String()+")", func(ctx *xrm.ExecutionContext) plugin.Verdict {
		if got := ctx.PipelineStage(); got != stage {
			return verdict(escalate, fmt.Sprintf("Pipeline stage is %s, want %s", got, stage))
		}
		return plugin.Pass()
	})
}

// Message passes when the triggering message is msg.
func Message(msg xrm.MessageType, escalate bool) plugin.Validator {
	return plugin.NewValidator("Message("+msg.String()+")", func(ctx *xrm.ExecutionContext) plugin.Verdict {
		if got := ctx.Message(); got != msg {
			return verdict(escalate, fmt.Sprintf("Message is %s (%q), want %s", got, ctx.MessageName, msg))
		}
		return plugin.Pass()
	})
}

// Mode passes when the context runs in the given execution mode.
func Mode(mode xrm.ExecutionMode, escalate bool) plugin.Validator {
	return plugin.NewValidator("Mode("+mode.String()+")", func(ctx *xrm.ExecutionContext) plugin.Verdict {
		if got := ctx.ExecutionMode(); got != mode {
			return verdict(escalate, fmt.Sprintf("Execution mode is %s, want %s", got, mode))
		}
		return plugin.Pass()
	})
}

// MaxDepth stops runaway recursion where a plugin's own writes re-trigger it.
func MaxDepth(limit int, escalate bool) plugin.Validator {
	return plugin.NewValidator(fmt.Sprintf("MaxDepth(%d)", limit), func(ctx *xrm.ExecutionContext) plugin.Verdict {
		if ctx.Depth > limit {
			return verdict(escalate, fmt.Sprintf("Depth %d exceeds %d", ctx.Depth, limit))
		}
		return plugin.Pass()
	})
}

func verdict(escalate bool, msg string) plugin.Verdict {
	if escalate {
		return plugin.Reject(msg)
	}
	return plugin.Decline(msg)
}
