package host

import (
	"fmt"
	"maps"
	"slices"

	"github.com/thinkcrm/plugincore/internal/handlers/setbyandon"
	"github.com/thinkcrm/plugincore/internal/platform/config"
	"github.com/thinkcrm/plugincore/internal/plugin"
	"github.com/thinkcrm/plugincore/internal/plugin/validators"
)

// SetByAndOn is the catalog name of the audit-stamp override handler.
const SetByAndOn = "setbyandon"

var builtins = map[string]func() plugin.Handler{
	SetByAndOn: func() plugin.Handler { return setbyandon.New() },
}

// BuiltinCatalog registers the shipped handlers, configured from the
// "plugins" config section. Configuration for an unknown name, or an
// expression validator that does not compile, is an error.
func BuiltinCatalog(cfgs map[string]config.PluginConfig) (*Catalog, error) {
	for name := range cfgs {
		if _, ok := builtins[name]; !ok {
			return nil, fmt.Errorf("plugins.%s: %w", name, ErrHandlerNotFound)
		}
	}

	c := NewCatalog()
	for _, name := range slices.Sorted(maps.Keys(builtins)) {
		pc := cfgs[name]
		if pc.Disabled {
			continue
		}
		vs, err := compileValidators(name, pc.Validators)
		if err != nil {
			return nil, err
		}
		if err := c.Register(name, Registration{
			Factory:    builtins[name],
			Unsecure:   pc.Unsecure,
			Secure:     pc.Secure,
			Validators: vs,
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func compileValidators(catalogName string, cfgs []config.ValidatorConfig) ([]plugin.Validator, error) {
	out := make([]plugin.Validator, 0, len(cfgs))
	for i, vc := range cfgs {
		name := vc.Name
		if name == "" {
			name = fmt.Sprintf("%s.validators[%d]", catalogName, i)
		}
		v, err := validators.CompileExpr(name, vc.Expr, vc.Escalate)
		if err != nil {
			return nil, fmt.Errorf("plugins.%s: %w", catalogName, err)
		}
		out = append(out, v)
	}
	return out, nil
}
