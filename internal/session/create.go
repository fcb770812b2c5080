package session

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mrsinham/importctx/internal/bridge"
	"github.com/mrsinham/importctx/internal/model"
	"github.com/mrsinham/importctx/internal/registry"
	"github.com/mrsinham/importctx/internal/validation"
)

// Creator plays the creation sub-workflow. Returning a nil entity and a
// nil error means the operator cancelled.
type Creator interface {
	Create(ctx context.Context, req bridge.Request) (any, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, req bridge.Request) (any, error)

// Create calls f.
func (f CreatorFunc) Create(ctx context.Context, req bridge.Request) (any, error) {
	return f(ctx, req)
}

// Create branches into the creation sub-workflow for level, hands the
// request to c and merges what it returns.
func (s *Session) Create(ctx context.Context, level model.Level, c Creator) (bridge.Settlement, error) {
	h, err := s.bridge.Begin(ctx, level)
	if err != nil {
		return bridge.Settlement{}, err
	}

	entity, err := c.Create(ctx, h.Request())
	if err != nil {
		s.logger.Warn("creation failed", zap.Stringer("level", level), zap.Error(err))
		h.Cancel()
		return bridge.Settlement{}, eris.Wrapf(err, "create %s", level)
	}
	if err := h.Complete(entity); err != nil {
		return bridge.Settlement{}, err
	}
	return h.Wait(ctx)
}

// RegistryCreator creates entities in a registry. Edit, when set, may
// change the draft before it is registered.
type RegistryCreator struct {
	Registry *registry.Store
	Edit     func(draft any) any
}

// Create registers the drafted entity.
func (rc RegistryCreator) Create(ctx context.Context, req bridge.Request) (any, error) {
	d := req.Draft
	if rc.Edit != nil {
		d = rc.Edit(d)
	}
	switch e := d.(type) {
	case nil:
		return nil, nil
	case model.Center:
		return rc.Registry.CreateCenter(ctx, req.Context.StudyID, e)
	case model.AcquisitionEquipment:
		return rc.Registry.CreateEquipment(ctx, e)
	case model.Subject:
		return rc.Registry.CreateSubject(ctx, e)
	case model.Examination:
		return rc.Registry.CreateExamination(ctx, e)
	case model.StudyCard:
		return rc.Registry.UpdateStudyCard(ctx, e)
	}
	return nil, eris.Wrapf(bridge.ErrUnsupportedLevel, "draft %T", d)
}

func missingNames(c model.ImportContext) []string {
	missing := validation.Missing(c)
	names := make([]string, len(missing))
	for i, l := range missing {
		names[i] = l.String()
	}
	return names
}
