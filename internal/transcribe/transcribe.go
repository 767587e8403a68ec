package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/common"
	"github.com/AengusMcGuinness/Powertown-MVP-rework/internal/ocr"
)

// Transcriber turns an audio or video file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
}

// WhisperTranscriber shells out to ffmpeg for audio normalization and a
// whisper.cpp CLI for the actual transcription.
type WhisperTranscriber struct {
	cfg    common.TranscribeConfig
	runner ocr.Runner
}

func NewWhisperTranscriber(cfg common.TranscribeConfig, runner ocr.Runner) *WhisperTranscriber {
	if runner == nil {
		runner = ocr.NewExecRunner()
	}
	return &WhisperTranscriber{cfg: cfg, runner: runner}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	if t.cfg.ModelPath == "" {
		return "", common.NewAppError("TRANSCRIBE_CONFIG", "WHISPER_MODEL_PATH is not set", common.ErrInvalidInput)
	}

	tmpDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		return "", common.WrapError(err, "create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	// Whisper wants mono 16kHz WAV. ffmpeg also strips any video stream.
	wavPath := filepath.Join(tmpDir, "audio.wav")
	_, stderr, err := t.runner.Run(ctx, t.cfg.FFmpeg,
		"-y", "-i", mediaPath, "-vn", "-ac", "1", "-ar", "16000", "-f", "wav", wavPath)
	if err != nil {
		return "", common.WrapError(err, fmt.Sprintf("ffmpeg transcode failed: %s", lastLine(stderr)))
	}

	args := []string{"-m", t.cfg.ModelPath, "-f", wavPath, "-np", "-nt"}
	if t.cfg.Language != "" {
		args = append(args, "-l", t.cfg.Language)
	}
	out, stderr, err := t.runner.Run(ctx, t.cfg.Whisper, args...)
	if err != nil {
		return "", common.WrapError(err, fmt.Sprintf("whisper failed: %s", lastLine(stderr)))
	}

	return strings.TrimSpace(string(out)), nil
}

// lastLine returns the final non-empty line; ffmpeg buries the actual
// error under pages of banner output.
func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
