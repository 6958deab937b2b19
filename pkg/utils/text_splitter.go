package utils

import "unicode/utf8"

// SplitText splits a long string into chunks of at most 'chunkSize' characters.
// It includes an 'overlap' to preserve context at boundaries; pass 0 for
// disjoint parts. Sizes are counted in runes so CJK text is never cut inside
// a character.
func SplitText(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 || utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		// Strict character slicing; callers that need word boundaries
		// should pick a smaller chunkSize instead.
		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}

// TruncateRunes cuts text to at most limit runes. The cut is a hard
// character cut, not sentence aware.
func TruncateRunes(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	return string([]rune(text)[:limit]), true
}
