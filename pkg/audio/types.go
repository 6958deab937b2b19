package audio

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrMediaTooLarge        = errors.New("media exceeds the maximum accepted size")
	ErrNoChunks             = errors.New("segmentation produced no chunks")
	ErrSegmenterUnavailable = errors.New("segmentation tool unavailable")
)

// AllowedExtensions lists the file extensions treated as audio.
var AllowedExtensions = []string{".mp3", ".m4a", ".wav", ".aac", ".ogg", ".flac", ".opus"}

const defaultExtension = ".m4a"

// IsAudioFilename reports whether the filename carries an audio extension.
func IsAudioFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Job is one transient unit of audio work. Nothing about it is persisted.
type Job struct {
	ID       string
	OwnerID  string
	Filename string
	Data     []byte
}

func (j *Job) SizeBytes() int64 {
	return int64(len(j.Data))
}

// Extension picks the file extension used for temporary chunk files: the
// filename's when it is a known audio type, otherwise whatever the content
// sniffs as.
func (j *Job) Extension() string {
	if IsAudioFilename(j.Filename) {
		return strings.ToLower(filepath.Ext(j.Filename))
	}
	if len(j.Data) > 0 {
		if ext := mimetype.Detect(j.Data).Extension(); ext != "" {
			return ext
		}
	}
	return defaultExtension
}

// Chunk is one contiguous slice of a job's audio. Index drives ordering and
// labeling of the stitched transcript.
type Chunk struct {
	Index int
	Data  []byte
	Ext   string
}

// Segmentation is the ordered chunk list plus the method that produced it.
type Segmentation struct {
	Method string
	Chunks []Chunk
}

// TranscriptSegment holds one chunk's outcome. A failed chunk keeps its slot.
type TranscriptSegment struct {
	ChunkIndex  int
	Text        string
	Failed      bool
	ErrorDetail string
}
