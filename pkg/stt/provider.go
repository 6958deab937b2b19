package stt

import "context"

// Transcriber turns one audio file into text. The file must be under the
// upstream size ceiling (about 25 MB for Whisper).
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string, language string) (string, error)
}
