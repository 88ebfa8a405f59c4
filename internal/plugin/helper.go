package plugin

import (
	"errors"
	"fmt"

	"github.com/thinkcrm/plugincore/internal/tracing"
	"github.com/thinkcrm/plugincore/internal/xrm"
)

const helperCaller = "plugin.Helper"

var (
	ErrTargetNotFound = errors.New("target missing or of the wrong shape")
	ErrImageNotFound  = errors.New("image not found")
)

// Helper extracts typed targets and images from the execution context.
// Every miss is logged and returned as a Failure; there are no defaults.
type Helper struct {
	setup *Setup
	log   *tracing.Logger
}

// TargetEntity returns the "Target" input parameter as an entity.
func (h *Helper) TargetEntity() (*xrm.Entity, error) {
	raw, ok := h.setup.ctx.InputParameters.Get(TargetKey)
	if e, isEntity := raw.(*xrm.Entity); ok && isEntity && e != nil {
		return e, nil
	}
	h.logTargetMiss("Entity", raw, ok)
	return nil, Fail(fmt.Errorf("entity: %w", ErrTargetNotFound))
}

// TargetReference returns the "Target" input parameter as a reference.
func (h *Helper) TargetReference() (xrm.EntityReference, error) {
	raw, ok := h.setup.ctx.InputParameters.Get(TargetKey)
	switch ref := raw.(type) {
	case xrm.EntityReference:
		return ref, nil
	case *xrm.EntityReference:
		if ref != nil {
			return *ref, nil
		}
	}
	h.logTargetMiss("EntityReference", raw, ok)
	return xrm.EntityReference{}, Fail(fmt.Errorf("entity reference: %w", ErrTargetNotFound))
}

func (h *Helper) logTargetMiss(shape string, raw any, present bool) {
	typ := "(Not Applicable)"
	if present {
		typ = fmt.Sprintf("%T", raw)
	}
	h.log.Write("Error: InputParameters does not contain a Target or Target is not %s. Contains: %t / Type: %s",
		shape, present, typ)
}

// Image looks up a named pre or post image. With skipOnCreate set, a Create
// message yields (nil, nil) whether or not the image exists. A key that is
// registered with a null entity counts as found and yields (nil, nil) too;
// only an absent key is a Failure.
func (h *Helper) Image(name string, kind xrm.ImageKind, skipOnCreate bool) (*xrm.Entity, error) {
	ctx := h.setup.ctx
	if skipOnCreate && ctx.Message() == xrm.MessageCreate {
		return tracing.WriteAndReturn[*xrm.Entity](h.log, nil,
			"Returning nil for Image due to Create message and skipOnCreate set true."), nil
	}

	images := ctx.PreEntityImages
	if kind == xrm.PostImage {
		images = ctx.PostEntityImages
	}
	if img, ok := images.Get(name); ok {
		return tracing.WriteAndReturn(h.log, img, "Found %s named %s", kind, name), nil
	}

	h.log.Write("Error: %s does not contain %s", kind.CollectionName(), name)
	return nil, Fail(fmt.Errorf("%s %q: %w", kind, name, ErrImageNotFound))
}

// FindInParentChain looks key up in the named collection of the current
// context and then each ancestor.
func (h *Helper) FindInParentChain(which xrm.Collection, key string) (any, bool) {
	return xrm.FindInParentChain(h.setup.ctx, which, key)
}

// TargetEntityAs projects the target entity onto T through its xrm tags.
func TargetEntityAs[T any](h *Helper) (*T, error) {
	e, err := h.TargetEntity()
	if err != nil {
		return nil, err
	}
	return project[T](h, e)
}

// ImageAs projects a named image onto T. A skipped image stays nil.
func ImageAs[T any](h *Helper, name string, kind xrm.ImageKind, skipOnCreate bool) (*T, error) {
	img, err := h.Image(name, kind, skipOnCreate)
	if err != nil || img == nil {
		return nil, err
	}
	return project[T](h, img)
}

func project[T any](h *Helper, e *xrm.Entity) (*T, error) {
	v, err := xrm.Project[T](e)
	if err != nil {
		h.log.WriteError(err)
		return nil, Fail(err)
	}
	return v, nil
}
