package constants

// JobStatus is the canonical lifecycle state for rows in processing_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued     JobStatus = "queued"     // waiting for a worker
	JobStatusProcessing JobStatus = "processing" // claimed by a worker
	JobStatusDone       JobStatus = "done"       // terminal success
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)

// JobType identifies the kind of work a processing job performs.
// These are wire-visible values; callers outside the core enqueue them by name.
type JobType string

const (
	JobTypeExtractText     JobType = "extract_text"
	JobTypeTranscribeAudio JobType = "transcribe_audio"
	JobTypeExtractStruct   JobType = "extract_structured"
	JobTypeExtractDiscover JobType = "extract_discovery"
)

// ArtifactStatus is the artifact-level lifecycle state. Ingestion owns it;
// the worker only patches it after extraction outcomes.
type ArtifactStatus string

const (
	ArtifactStatusUploaded  ArtifactStatus = "uploaded"
	ArtifactStatusProcessed ArtifactStatus = "processed"
	ArtifactStatusError     ArtifactStatus = "error"
)
