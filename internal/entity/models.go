package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/constants"
)

// Site is a parent association for artifacts (an industrial park / location).
// Owned by the resource layer; the core only references it.
type Site struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;size:200;not null"`
	Location  *string   `gorm:"column:location;size:200"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (Site) TableName() string { return "sites" }

// Building is the second parent association for artifacts.
type Building struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SiteID    uuid.UUID `gorm:"column:site_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;size:200;not null"`
	Address   *string   `gorm:"column:address;size:300"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (Building) TableName() string { return "buildings" }

// Artifact is a generic unit of evidence (file or text note) attached to a
// site and/or building. Ingestion owns most columns; the core reads them and
// patches status, error_message and text_content.
type Artifact struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SiteID     *uuid.UUID `gorm:"column:site_id;type:uuid;index"`
	BuildingID *uuid.UUID `gorm:"column:building_id;type:uuid;index"`

	Kind             constants.ArtifactKind `gorm:"column:kind;size:50;not null;default:file"`
	MimeType         *string                `gorm:"column:mime_type;size:120"`
	OriginalFilename *string                `gorm:"column:original_filename;size:300"`

	// File artifacts
	StoragePath *string `gorm:"column:storage_path;size:700"`
	BytesSize   *int64  `gorm:"column:bytes_size"`
	SHA256      *string `gorm:"column:sha256;size:64"`

	// Text artifacts (notes); also mirrors transcripts for quick rendering
	TextContent *string `gorm:"column:text_content;type:text"`

	Status       constants.ArtifactStatus `gorm:"column:status;size:30;not null;default:uploaded"`
	ErrorMessage *string                  `gorm:"column:error_message;type:text"`
	CreatedAt    time.Time                `gorm:"column:created_at;not null"`
}

func (Artifact) TableName() string { return "artifacts" }

// ProcessingJob is one unit of queued work against exactly one artifact.
// Rows are created by the enqueuer and mutated only by the worker loop;
// they are never deleted.
type ProcessingJob struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ArtifactID uuid.UUID           `gorm:"column:artifact_id;type:uuid;not null;index"`
	JobType    constants.JobType   `gorm:"column:job_type;size:50;not null"`
	Status     constants.JobStatus `gorm:"column:status;size:20;not null;default:queued;index:idx_jobs_status_created"`
	Attempts   int                 `gorm:"column:attempts;not null;default:0"`
	LastError  *string             `gorm:"column:last_error;type:text"`

	CreatedAt  time.Time  `gorm:"column:created_at;not null;index:idx_jobs_status_created"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null"`
	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
}

func (ProcessingJob) TableName() string { return "processing_jobs" }

// ArtifactTextSegment is one ordered chunk of extracted plain text. The full
// segment set for an artifact is always replaced in one transaction; mixed
// extraction runs are never visible to readers.
type ArtifactTextSegment struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ArtifactID   uuid.UUID `gorm:"column:artifact_id;type:uuid;not null;uniqueIndex:uq_segment_artifact_index"`
	SegmentIndex int       `gorm:"column:segment_index;not null;uniqueIndex:uq_segment_artifact_index"`
	Text         string    `gorm:"column:text;type:text;not null"`
	SourceRef    string    `gorm:"column:source_ref;size:200"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (ArtifactTextSegment) TableName() string { return "artifact_text_segments" }

// Claim is one structured fact extracted from an artifact. Discovery claims
// live in the disc: key namespace and are replaced independently of schema
// claims.
type Claim struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ArtifactID uuid.UUID  `gorm:"column:artifact_id;type:uuid;not null;index"`
	BuildingID *uuid.UUID `gorm:"column:building_id;type:uuid;index"`

	FieldKey   string    `gorm:"column:field_key;size:100;not null"`
	ValueJSON  string    `gorm:"column:value_json;type:text;not null"`
	Unit       *string   `gorm:"column:unit;size:40"`
	Confidence float64   `gorm:"column:confidence;not null;default:0.5"`
	SourceRef  string    `gorm:"column:source_ref;size:200"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (Claim) TableName() string { return "claims" }
