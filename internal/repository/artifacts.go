package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

// ArtifactRepository exposes the slice of the artifact row the core is
// allowed to touch: reads, plus status/error/text patches after extraction.
type ArtifactRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Artifact, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	SetTextContent(ctx context.Context, id uuid.UUID, text string) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewArtifactRepository(db *gorm.DB, log *slog.Logger) ArtifactRepository {
	if log == nil {
		log = slog.Default()
	}
	return &artifactRepo{db: db, log: log}
}

func (r *artifactRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Artifact, error) {
	var a entity.Artifact
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get artifact")
	}
	return &a, nil
}

func (r *artifactRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.Artifact{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, common.WrapError(err, "list artifact ids")
	}
	return ids, nil
}

func (r *artifactRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&entity.Artifact{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        constants.ArtifactStatusProcessed,
			"error_message": nil,
		}).Error
	if err != nil {
		r.log.Error("artifact.mark_processed.failed", "artifact_id", id, "error", err)
		return common.WrapError(err, "mark artifact processed")
	}
	return nil
}

func (r *artifactRepo) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	err := r.db.WithContext(ctx).
		Model(&entity.Artifact{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        constants.ArtifactStatusError,
			"error_message": truncate(message, maxErrorChars),
		}).Error
	if err != nil {
		r.log.Error("artifact.mark_error.failed", "artifact_id", id, "error", err)
		return common.WrapError(err, "mark artifact error")
	}
	return nil
}

func (r *artifactRepo) SetTextContent(ctx context.Context, id uuid.UUID, text string) error {
	err := r.db.WithContext(ctx).
		Model(&entity.Artifact{}).
		Where("id = ?", id).
		Update("text_content", text).Error
	if err != nil {
		return common.WrapError(err, "set artifact text content")
	}
	return nil
}
