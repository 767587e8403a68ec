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

// DiscoveryKeyPrefix namespaces schema-free discovery claims. Structured and
// discovery extraction replace disjoint slices of the claims table.
const DiscoveryKeyPrefix = "disc:"

// ClaimInput is one validated claim handed to a replace operation.
type ClaimInput struct {
	FieldKey   string
	ValueJSON  string
	Unit       *string
	Confidence float64
	SourceRef  string
}

type ClaimRepository interface {
	// ReplaceStructured replaces all non-discovery claims for the artifact in
	// one transaction. Passing an empty slice clears the structured claim set.
	ReplaceStructured(ctx context.Context, artifactID uuid.UUID, buildingID *uuid.UUID, claims []ClaimInput) error

	// ReplaceDiscovery replaces only the disc:-namespaced claims.
	ReplaceDiscovery(ctx context.Context, artifactID uuid.UUID, buildingID *uuid.UUID, claims []ClaimInput) error

	ListByArtifact(ctx context.Context, artifactID uuid.UUID) ([]entity.Claim, error)
}

type claimRepo struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewClaimRepository(db *gorm.DB, log *slog.Logger) ClaimRepository {
	if log == nil {
		log = slog.Default()
	}
	return &claimRepo{db: db, log: log}
}

func (r *claimRepo) ReplaceStructured(ctx context.Context, artifactID uuid.UUID, buildingID *uuid.UUID, claims []ClaimInput) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artifact_id = ? AND field_key NOT LIKE ?", artifactID, DiscoveryKeyPrefix+"%").
			Delete(&entity.Claim{}).Error; err != nil {
			return err
		}
		return insertClaims(tx, artifactID, buildingID, claims)
	})
	if err != nil {
		r.log.Error("claims.replace_structured.failed", "artifact_id", artifactID, "error", err)
		return common.WrapError(err, "replace structured claims")
	}
	r.log.Info("claims.replaced", "artifact_id", artifactID, "count", len(claims), "namespace", "structured")
	return nil
}

func (r *claimRepo) ReplaceDiscovery(ctx context.Context, artifactID uuid.UUID, buildingID *uuid.UUID, claims []ClaimInput) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artifact_id = ? AND field_key LIKE ?", artifactID, DiscoveryKeyPrefix+"%").
			Delete(&entity.Claim{}).Error; err != nil {
			return err
		}
		return insertClaims(tx, artifactID, buildingID, claims)
	})
	if err != nil {
		r.log.Error("claims.replace_discovery.failed", "artifact_id", artifactID, "error", err)
		return common.WrapError(err, "replace discovery claims")
	}
	r.log.Info("claims.replaced", "artifact_id", artifactID, "count", len(claims), "namespace", "discovery")
	return nil
}

func (r *claimRepo) ListByArtifact(ctx context.Context, artifactID uuid.UUID) ([]entity.Claim, error) {
	var claims []entity.Claim
	err := r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("field_key ASC").
		Find(&claims).Error
	if err != nil {
		return nil, common.WrapError(err, "list claims")
	}
	return claims, nil
}

func insertClaims(tx *gorm.DB, artifactID uuid.UUID, buildingID *uuid.UUID, claims []ClaimInput) error {
	now := time.Now().UTC()
	for _, c := range claims {
		row := entity.Claim{
			ID:         uuid.New(),
			ArtifactID: artifactID,
			BuildingID: buildingID,
			FieldKey:   c.FieldKey,
			ValueJSON:  c.ValueJSON,
			Unit:       c.Unit,
			Confidence: c.Confidence,
			SourceRef:  c.SourceRef,
			CreatedAt:  now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
