package domain

import "sort"

// EmotionTally counts per-frame emotion picks across one job's sampled
// frames. Only frames with a detected face are added, so the percentage
// denominator excludes no-face frames.
type EmotionTally struct {
	counts   map[string]int
	detected int
}

func NewEmotionTally() *EmotionTally {
	return &EmotionTally{counts: make(map[string]int)}
}

func (t *EmotionTally) Add(emotion string) {
	if emotion == "" {
		return
	}
	t.counts[emotion]++
	t.detected++
}

// Detected returns the number of frames counted so far.
func (t *EmotionTally) Detected() int {
	return t.detected
}

// Dominant returns the most frequent emotion as a percentage of detected
// frames, or nil when nothing was detected. Ties break lexicographically so
// the result is reproducible.
func (t *EmotionTally) Dominant() *DominantEmotion {
	if t.detected == 0 {
		return nil
	}
	labels := make([]string, 0, len(t.counts))
	for label := range t.counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := labels[0]
	for _, label := range labels[1:] {
		if t.counts[label] > t.counts[best] {
			best = label
		}
	}
	return &DominantEmotion{
		Emotion:    best,
		Percentage: float64(t.counts[best]) / float64(t.detected) * 100,
	}
}

// Argmax picks the highest-scoring emotion from a distribution, breaking
// ties lexicographically. Returns "" for an empty distribution.
func Argmax(scores map[string]float64) (string, float64) {
	labels := make([]string, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return "", 0
	}
	sort.Strings(labels)

	best := labels[0]
	for _, label := range labels[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}
	return best, scores[best]
}
