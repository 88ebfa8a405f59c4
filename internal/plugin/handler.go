package plugin

import "fmt"

// Handler is the business logic of a plugin.
type Handler interface {
	Execute(s *Setup) error
}

// Namer overrides the class name logged for a handler.
type Namer interface {
	Name() string
}

// ValidationConfigurer adds validators imperatively. They run before any
// declared validators.
type ValidationConfigurer interface {
	ConfigureValidation(b *ValidationBuilder)
}

// DeclarativeSwitch turns declared validators off when it returns false.
type DeclarativeSwitch interface {
	UseDeclarativeValidators() bool
}

// Funcs builds a handler from function values. Nil fields fall back to the
// defaults of the interface they stand in for.
type Funcs struct {
	HandlerName        string
	ExecuteFunc        func(s *Setup) error
	ConfigureFunc      func(b *ValidationBuilder)
	DisableDeclarative bool
}

func (f Funcs) Execute(s *Setup) error {
	if f.ExecuteFunc == nil {
		s.Logging().Write("No execute function configured")
		return nil
	}
	return f.ExecuteFunc(s)
}

func (f Funcs) Name() string {
	if f.HandlerName == "" {
		return fmt.Sprintf("%T", f)
	}
	return f.HandlerName
}

func (f Funcs) ConfigureValidation(b *ValidationBuilder) {
	if f.ConfigureFunc != nil {
		f.ConfigureFunc(b)
	}
}

func (f Funcs) UseDeclarativeValidators() bool { return !f.DisableDeclarative }

// HandlerName returns the Namer name of h, or its Go type name.
func HandlerName(h Handler) string {
	if n, ok := h.(Namer); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%T", h)
}
