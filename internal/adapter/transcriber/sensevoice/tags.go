package sensevoice

import (
	"regexp"
	"strings"

	"affekt/internal/domain"
	"affekt/internal/port"
)

// The model interleaves rich-transcription tags with the recognized
// text. Emotion tags map to the shared emotion vocabulary; event tags
// are surfaced verbatim minus the delimiters.
var emotionTags = []struct {
	tag     string
	emotion string
}{
	{"<|HAPPY|>", "happy"},
	{"<|ANGRY|>", "angry"},
	{"<|NEUTRAL|>", "neutral"},
	{"<|SAD|>", "sad"},
	{"<|FEARFUL|>", "fear"},
	{"<|DISGUSTED|>", "disgust"},
	{"<|SURPRISED|>", "surprise"},
}

var eventTags = []string{
	"<|Speech|>",
	"<|Applause|>",
	"<|Laughter|>",
	"<|Crying|>",
	"<|Coughing|>",
	"<|Sneezing|>",
	"<|BGM|>",
}

var tagPattern = regexp.MustCompile(`<\|[^|]+\|>`)

// The model emits no per-utterance confidence; a fixed score marks
// tag-derived emotions as heuristic.
const taggedEmotionConfidence = 0.8

func cleanText(text string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}

func parseEmotion(text string) string {
	for _, e := range emotionTags {
		if strings.Contains(text, e.tag) {
			return e.emotion
		}
	}
	return "neutral"
}

func parseEvents(text string) []string {
	var events []string
	for _, tag := range eventTags {
		if strings.Contains(text, tag) {
			events = append(events, strings.TrimSuffix(strings.TrimPrefix(tag, "<|"), "|>"))
		}
	}
	return events
}

// normalize converts the tagged wire response into the port output:
// clean transcript, segments in seconds, and one emotion sample when
// the model tagged anything beyond plain neutral speech.
func normalize(raw *wireResponse) *port.TranscriptionOutput {
	out := &port.TranscriptionOutput{
		Text:        cleanText(raw.Text),
		Language:    raw.Language,
		AudioEvents: parseEvents(raw.Text),
	}
	if out.Language == "" {
		out.Language = "unknown"
	}

	if len(raw.Segments) > 0 {
		out.Segments = make([]domain.Segment, 0, len(raw.Segments))
		for _, seg := range raw.Segments {
			out.Segments = append(out.Segments, domain.Segment{
				Text:  cleanText(seg.Text),
				Start: seg.Start / 1000.0,
				End:   seg.End / 1000.0,
			})
		}
	}

	emotion := parseEmotion(raw.Text)
	if emotion != "neutral" || len(out.AudioEvents) > 0 {
		out.SpeechEmotions = []domain.SpeechEmotion{{
			Emotion:    emotion,
			Confidence: taggedEmotionConfidence,
			Timestamp:  0,
			Events:     out.AudioEvents,
		}}
	}
	return out
}
