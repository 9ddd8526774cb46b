package api

import (
	"context"
	"errors"
	"strings"

	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/variant"
)

// SlotRef addresses one asset slot of an entity.
type SlotRef struct {
	ProjectID string
	Kind      project.Kind
	EntityID  string
	Stage     string
}

// SelectVariant makes the given variant the slot's active choice.
func (s *Service) SelectVariant(ctx context.Context, slot SlotRef, variantID string) error {
	return s.withPool(slot, "select variant", func(pool *variant.Pool) error {
		return pool.Select(variantID)
	})
}

// DeleteVariant removes a variant; when it was selected, the newest
// remaining variant takes its place.
func (s *Service) DeleteVariant(ctx context.Context, slot SlotRef, variantID string) error {
	return s.withPool(slot, "delete variant", func(pool *variant.Pool) error {
		return pool.Delete(variantID)
	})
}

// FavoriteVariant toggles eviction protection for a variant.
func (s *Service) FavoriteVariant(ctx context.Context, slot SlotRef, variantID string, favorited bool) error {
	return s.withPool(slot, "favorite variant", func(pool *variant.Pool) error {
		return pool.SetFavorite(variantID, favorited)
	})
}

// RegisterUpload inserts a user-supplied image as an uploaded-source
// variant and selects it. Uploaded sources seed reverse generation of
// derived character stages.
func (s *Service) RegisterUpload(ctx context.Context, slot SlotRef, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", services.Wrap(services.ErrValidation, "api", "register upload",
			"image url is required", nil)
	}
	id := s.newID()
	err := s.withPool(slot, "register upload", func(pool *variant.Pool) error {
		pool.Insert(variant.Variant{
			ID:               id,
			URL:              strings.TrimSpace(url),
			CreatedAt:        s.clock(),
			IsUploadedSource: true,
		}, true)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("uploaded source registered",
		logging.String(logging.FieldProjectID, slot.ProjectID),
		logging.String(logging.FieldEntityID, slot.EntityID),
		logging.String(logging.FieldVariantID, id))
	return id, nil
}

func (s *Service) withPool(slot SlotRef, operation string, fn func(*variant.Pool) error) error {
	err := s.store.WithProject(slot.ProjectID, func(p *project.Project) error {
		pool, locked, err := resolvePool(p, slot.Kind, slot.EntityID, slot.Stage)
		if err != nil {
			return err
		}
		if locked {
			return lockedErr(slot.Kind, slot.EntityID)
		}
		if err := fn(pool); err != nil {
			if errors.Is(err, variant.ErrNotFound) {
				return services.Wrap(services.ErrNotFound, "api", operation, "", err)
			}
			return err
		}
		return nil
	})
	return wrapStoreErr(err, operation)
}
