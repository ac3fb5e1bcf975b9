package models

import "strings"

// Word is one word-level alignment unit inside a segment. Spans are
// monotonically non-decreasing within a segment.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment represents one contiguous span of transcribed speech in the database.
type Segment struct {
	ID      string  `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
	Speaker *string `json:"speaker,omitempty"` // Nullable TEXT
}

// JoinWords returns the single-space concatenation of the segment's word
// texts. For an aligned segment this equals Text after trimming.
func (s Segment) JoinWords() string {
	parts := make([]string, 0, len(s.Words))
	for _, w := range s.Words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// SpeakerEquals compares two nullable speaker values. Unassigned (nil) only
// equals unassigned; it never equals the literal string "null".
func SpeakerEquals(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TranscriptDocument is the full transcript payload for one
// (episode, language) pair: the flat text body plus the utterance list.
type TranscriptDocument struct {
	Text       string    `json:"text"`
	Utterances []Segment `json:"utterances"`
}

// JoinUtteranceTexts rebuilds the flat text body from the utterance list.
func (d TranscriptDocument) JoinUtteranceTexts() string {
	parts := make([]string, 0, len(d.Utterances))
	for _, u := range d.Utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
