package validators

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

// exprEnv exposes the context to expressions. Parameter collections are
// plain maps so expressions can use `"tag" in input` and `input.Target`.
func exprEnv(ctx *xrm.ExecutionContext) map[string]any {
	env := map[string]any{
		"message":       "",
		"stage":         0,
		"stageName":     "",
		"mode":          0,
		"isolation":     0,
		"depth":         0,
		"primaryEntity": "",
		"input":         map[string]any{},
		"output":        map[string]any{},
		"shared":        map[string]any{},
	}
	if ctx == nil {
		return env
	}
	env["message"] = ctx.MessageName
	env["stage"] = ctx.Stage
	env["stageName"] = ctx.PipelineStage().String()
	env["mode"] = ctx.Mode
	env["isolation"] = ctx.IsolationMode
	env["depth"] = ctx.Depth
	env["primaryEntity"] = ctx.PrimaryEntityName
	env["input"] = collection(ctx.InputParameters)
	env["output"] = collection(ctx.OutputParameters)
	env["shared"] = collection(ctx.SharedVariables)
	return env
}

func collection(p xrm.ParameterCollection) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any(p)
}

// CompileExpr compiles a boolean expression over the execution context into
// a validator. A false result or a runtime error fails the validator.
func CompileExpr(name, source string, escalate bool) (plugin.Validator, error) {
	program, err := expr.Compile(source, expr.Env(exprEnv(nil)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile validator %s %q: %w", name, source, err)
	}
	return exprValidator(name, source, program, escalate), nil
}

// Expr is CompileExpr for static registration tables. A source that does not
// compile yields a validator that always rejects with the compile error.
func Expr(name, source string, escalate bool) plugin.Validator {
	v, err := CompileExpr(name, source, escalate)
	if err != nil {
		msg := err.Error()
		return plugin.NewValidator(name, func(*xrm.ExecutionContext) plugin.Verdict {
			return plugin.Reject(msg)
		})
	}
	return v
}

func exprValidator(name, source string, program *vm.Program, escalate bool) plugin.Validator {
	return plugin.NewValidator(name, func(ctx *xrm.ExecutionContext) plugin.Verdict {
		out, err := expr.Run(program, exprEnv(ctx))
		if err != nil {
			return plugin.Reject(fmt.Sprintf("eval %q: %v", source, err))
		}
		if ok, _ := out.(bool); !ok {
			return verdict(escalate, fmt.Sprintf("expression %q is false", source))
		}
		return plugin.Pass()
	})
}
