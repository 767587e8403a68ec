package constants

import "strings"

// ArtifactKind is the declared kind of an artifact. Bulk-archive ingestion
// often leaves this as the generic "file", so routing also inspects the
// filename extension and MIME type.
type ArtifactKind string

const (
	KindText  ArtifactKind = "text"
	KindImage ArtifactKind = "image"
	KindPhoto ArtifactKind = "photo"
	KindPDF   ArtifactKind = "pdf"
	KindAudio ArtifactKind = "audio"
	KindVideo ArtifactKind = "video"
	KindFile  ArtifactKind = "file"
)

// StoragePending is the placeholder storage reference an artifact carries
// before its content is finalized on disk. Jobs against such artifacts must
// not be dispatched.
const StoragePending = "PENDING"

var imageExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "webp": {}, "gif": {},
}

var avExtensions = map[string]struct{}{
	"mp3": {}, "wav": {}, "m4a": {}, "aac": {}, "ogg": {}, "mp4": {}, "mov": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether kind, extension or MIME identify a PDF artifact.
func IsPDF(kind ArtifactKind, ext, mime string) bool {
	return kind == KindPDF || NormalizeExt(ext) == "pdf" || mime == "application/pdf"
}

// IsImage reports whether kind, extension or MIME identify an image artifact.
func IsImage(kind ArtifactKind, ext, mime string) bool {
	if kind == KindImage || kind == KindPhoto {
		return true
	}
	if _, ok := imageExtensions[NormalizeExt(ext)]; ok {
		return true
	}
	return strings.HasPrefix(mime, "image/")
}

// IsAudioVideo reports whether kind, extension or MIME identify an audio or
// video artifact.
func IsAudioVideo(kind ArtifactKind, ext, mime string) bool {
	if kind == KindAudio || kind == KindVideo {
		return true
	}
	if _, ok := avExtensions[NormalizeExt(ext)]; ok {
		return true
	}
	return strings.HasPrefix(mime, "audio/") || strings.HasPrefix(mime, "video/")
}
