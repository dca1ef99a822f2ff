package domain

// Segment is one timed span of transcribed speech. Invariant after
// sanitization: 0 <= Start < End, segments ordered strictly ascending by
// Start with no overlap.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Transcription struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// SpeechEmotion is one speech-emotion sample, optionally tagged with
// non-speech audio events (laughter, applause, ...).
type SpeechEmotion struct {
	Emotion    string   `json:"emotion"`
	Confidence float64  `json:"confidence"`
	Timestamp  float64  `json:"timestamp"`
	Events     []string `json:"events"`
}

// FacialEmotion is the result of one sampled frame with a detected face.
// AllEmotions maps every emotion label to its score; scores sum to ~1.
type FacialEmotion struct {
	Emotion     string             `json:"emotion"`
	Confidence  float64            `json:"confidence"`
	Timestamp   float64            `json:"timestamp"`
	Frame       int                `json:"frame"`
	AllEmotions map[string]float64 `json:"all_emotions"`
}

// DominantEmotion is derived from the facial samples of one job and never
// independently mutated. Percentage is over detected frames only.
type DominantEmotion struct {
	Emotion    string  `json:"emotion"`
	Percentage float64 `json:"percentage"`
}

// Result holds everything the two analysis branches produced. Any field may
// be absent when the corresponding branch failed or found nothing.
type Result struct {
	Transcription         *Transcription  `json:"transcription,omitempty"`
	SpeechEmotions        []SpeechEmotion `json:"speech_emotions,omitempty"`
	AudioEvents           []string        `json:"audio_events,omitempty"`
	FacialEmotions        []FacialEmotion `json:"facial_emotions,omitempty"`
	DominantFacialEmotion *DominantEmotion `json:"dominant_facial_emotion,omitempty"`
}

func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := &Result{}
	if r.Transcription != nil {
		t := *r.Transcription
		t.Segments = append([]Segment(nil), r.Transcription.Segments...)
		c.Transcription = &t
	}
	if r.SpeechEmotions != nil {
		c.SpeechEmotions = make([]SpeechEmotion, len(r.SpeechEmotions))
		for i, e := range r.SpeechEmotions {
			e.Events = append([]string(nil), e.Events...)
			c.SpeechEmotions[i] = e
		}
	}
	c.AudioEvents = append([]string(nil), r.AudioEvents...)
	if r.FacialEmotions != nil {
		c.FacialEmotions = make([]FacialEmotion, len(r.FacialEmotions))
		for i, e := range r.FacialEmotions {
			if e.AllEmotions != nil {
				scores := make(map[string]float64, len(e.AllEmotions))
				for k, v := range e.AllEmotions {
					scores[k] = v
				}
				e.AllEmotions = scores
			}
			c.FacialEmotions[i] = e
		}
	}
	if r.DominantFacialEmotion != nil {
		d := *r.DominantFacialEmotion
		c.DominantFacialEmotion = &d
	}
	return c
}

// HasContent reports whether at least one branch contributed anything.
func (r *Result) HasContent() bool {
	if r == nil {
		return false
	}
	return r.Transcription != nil || len(r.FacialEmotions) > 0 ||
		r.DominantFacialEmotion != nil || len(r.SpeechEmotions) > 0
}
