package plugin

import "sync"

// ValidatorFactory builds a fresh validator for one plugin instance.
type ValidatorFactory func() Validator

// Use wraps an already-built validator as a factory.
func Use(v Validator) ValidatorFactory {
	return func() Validator { return v }
}

// Declarer lets a handler list its declarative validators itself.
type Declarer interface {
	DeclaredValidators() []Validator
}

var declared = struct {
	sync.RWMutex
	byHandler map[string][]ValidatorFactory
}{byHandler: make(map[string][]ValidatorFactory)}

// Declare registers validators for the named handler. Registration order is
// evaluation order; repeated calls append. Intended for init functions.
func Declare(handlerName string, factories ...ValidatorFactory) {
	declared.Lock()
	defer declared.Unlock()
	for _, f := range factories {
		if f != nil {
			declared.byHandler[handlerName] = append(declared.byHandler[handlerName], f)
		}
	}
}

// Declared instantiates the validators registered for handlerName.
func Declared(handlerName string) []Validator {
	declared.RLock()
	factories := declared.byHandler[handlerName]
	declared.RUnlock()

	out := make([]Validator, 0, len(factories))
	for _, f := range factories {
		if v := f(); v != nil {
			out = append(out, v)
		}
	}
	return out
}
