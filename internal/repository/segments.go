package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/entity"
)

// SegmentInput is one chunk of extracted text handed to ReplaceAll.
type SegmentInput struct {
	Text      string
	SourceRef string
}

// SegmentRepository stores ordered extracted-text chunks per artifact.
type SegmentRepository interface {
	// ReplaceAll deletes the artifact's segment set and writes the new one in
	// a single transaction. Readers never observe a mix of two runs.
	ReplaceAll(ctx context.Context, artifactID uuid.UUID, segments []SegmentInput) error

	// ListByArtifact returns segments ordered by segment_index.
	ListByArtifact(ctx context.Context, artifactID uuid.UUID) ([]entity.ArtifactTextSegment, error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewSegmentRepository(db *gorm.DB, log *slog.Logger) SegmentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &segmentRepo{db: db, log: log}
}

func (r *segmentRepo) ReplaceAll(ctx context.Context, artifactID uuid.UUID, segments []SegmentInput) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artifact_id = ?", artifactID).
			Delete(&entity.ArtifactTextSegment{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for i, seg := range segments {
			row := entity.ArtifactTextSegment{
				ID:           uuid.New(),
				ArtifactID:   artifactID,
				SegmentIndex: i,
				Text:         seg.Text,
				SourceRef:    seg.SourceRef,
				CreatedAt:    now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("segments.replace.failed", "artifact_id", artifactID, "error", err)
		return common.WrapError(err, "replace segments")
	}
	r.log.Info("segments.replaced", "artifact_id", artifactID, "count", len(segments))
	return nil
}

func (r *segmentRepo) ListByArtifact(ctx context.Context, artifactID uuid.UUID) ([]entity.ArtifactTextSegment, error) {
	var segs []entity.ArtifactTextSegment
	err := r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("segment_index ASC").
		Find(&segs).Error
	if err != nil {
		return nil, common.WrapError(err, "list segments")
	}
	return segs, nil
}
