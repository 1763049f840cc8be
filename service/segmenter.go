package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ScriptSection is one contiguous span of script text with the spoken
// duration its clip must fill. Immutable once produced.
type ScriptSection struct {
	Text            string
	DurationSeconds float64
}

// sectionOvershoot is how far past the target a section may grow before
// the next sentence starts a new one.
const sectionOvershoot = 1.5

// Split cuts a narration script into sections whose durations are derived
// from the measured audio length, not from a words-per-minute estimate.
//
// Sentences are accumulated greedily against targetSeconds, each section
// clamped into the provider's [minSeconds, maxSeconds] range, then all
// durations are rescaled so their sum matches totalAudioSeconds and
// re-clamped. Per-section clamping alone lets the sum drift arbitrarily
// far from the real audio length as the section count grows; the rescale
// pass restores the global sum while the final clamp keeps every section
// legal for the provider. When both constraints cannot hold at once,
// provider legality wins.
func Split(script string, totalAudioSeconds, targetSeconds, minSeconds, maxSeconds float64) ([]ScriptSection, error) {
	if totalAudioSeconds <= 0 {
		return nil, fmt.Errorf("audio duration must be positive, got %v", totalAudioSeconds)
	}
	if minSeconds > maxSeconds {
		return nil, fmt.Errorf("invalid clip bounds [%v, %v]", minSeconds, maxSeconds)
	}

	sentences := splitSentences(script)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("script contains no sentences")
	}

	totalChars := 0
	for _, s := range sentences {
		totalChars += utf8.RuneCountInString(s)
	}
	charRate := float64(totalChars) / totalAudioSeconds

	estimate := func(text string) float64 {
		return float64(utf8.RuneCountInString(text)) / charRate
	}

	clamp := func(d float64) float64 {
		if d < minSeconds {
			return minSeconds
		}
		if d > maxSeconds {
			return maxSeconds
		}
		return d
	}

	var sections []ScriptSection
	current := ""
	for _, sentence := range sentences {
		if current == "" {
			current = sentence
			continue
		}
		joined := current + " " + sentence
		if estimate(joined) > targetSeconds+sectionOvershoot {
			sections = append(sections, ScriptSection{
				Text:            current,
				DurationSeconds: clamp(estimate(current)),
			})
			current = sentence
			continue
		}
		current = joined
	}
	sections = append(sections, ScriptSection{
		Text:            current,
		DurationSeconds: clamp(estimate(current)),
	})

	sum := 0.0
	for _, s := range sections {
		sum += s.DurationSeconds
	}
	scale := totalAudioSeconds / sum
	for i := range sections {
		sections[i].DurationSeconds = clamp(sections[i].DurationSeconds * scale)
	}

	return sections, nil
}

// splitSentences tokenizes on sentence terminators, keeping each sentence
// with its punctuation. Content is never split mid-sentence.
func splitSentences(script string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range script {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" && !isOnlyPunct(s) {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" && !isOnlyPunct(s) {
		sentences = append(sentences, s)
	}
	return sentences
}

func isOnlyPunct(s string) bool {
	return strings.Trim(s, ".!?… ") == ""
}
