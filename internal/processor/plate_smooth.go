package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/five82/dashcamd/internal/task"
)

// MinSmoothObservations is the number of OCR observations a
// (video_id, track_id) accumulator must see before it emits a final
// plate string, per spec §4.6.
const MinSmoothObservations = 2

type plateGuess struct {
	text string
	conf float64
}

type smoothKey struct {
	videoID string
	trackID int
	hasNone bool // true when the upstream task carried no track_id
}

// PlateSmoothResource accumulates OCR guesses keyed by (video_id,
// track_id). When track_id is absent, all guesses for a video collapse
// into a single (video_id, nil) accumulator — an intentionally preserved
// limitation (spec §9 open question), not one this implementation fixes.
type PlateSmoothResource struct {
	mu    sync.Mutex
	cache map[smoothKey][]plateGuess
}

// PlateSmoothProcessor implements the confidence-weighted character-
// voting consensus stage (spec §4.6), transliterated from the original
// smoother's difflib-based merge.
type PlateSmoothProcessor struct{}

// Load returns a fresh, empty accumulator.
func (PlateSmoothProcessor) Load() (Resource, error) {
	return &PlateSmoothResource{cache: make(map[smoothKey][]plateGuess)}, nil
}

// Process appends the task's OCR text/confidence to its track's
// accumulator and, once at least MinSmoothObservations guesses have
// arrived, returns a merged consensus string.
func (PlateSmoothProcessor) Process(_ context.Context, t task.Task, r Resource) (Result, error) {
	res, ok := r.(*PlateSmoothResource)
	if !ok {
		return nil, fmt.Errorf("processor: plate_smooth got wrong resource type %T", r)
	}

	text, conf := ocrFields(t)

	key := smoothKey{videoID: t.VideoID}
	if t.TrackID != nil {
		key.trackID = *t.TrackID
	} else {
		key.hasNone = true
	}

	res.mu.Lock()
	defer res.mu.Unlock()

	if text != "" {
		res.cache[key] = append(res.cache[key], plateGuess{text: text, conf: conf})
	}

	guesses := res.cache[key]
	if len(guesses) < MinSmoothObservations {
		return SmoothResult{Final: nil}, nil
	}

	merged := mergeStrings(guesses)
	maxConf := guesses[0].conf
	for _, g := range guesses[1:] {
		if g.conf > maxConf {
			maxConf = g.conf
		}
	}
	return SmoothResult{Final: &merged, Conf: maxConf}, nil
}

// ocrFields reads text/conf preferentially from the task payload (an
// OCRResult forwarded by the dispatch handler), falling back to meta.
func ocrFields(t task.Task) (string, float64) {
	if oc, ok := t.Payload.(OCRResult); ok {
		return oc.Text, oc.Conf
	}
	var text string
	var conf float64
	if t.Meta.Final != nil {
		text = *t.Meta.Final
	}
	if t.Meta.Conf != nil {
		conf = *t.Meta.Conf
	}
	return text, conf
}

// similarity returns a Ratcliff/Obershelp-style ratio in [0,1]: twice the
// longest-common-subsequence length over the combined length of a and b.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	m := lcsLength(a, b)
	return 2.0 * float64(m) / float64(len(a)+len(b))
}

func lcsLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// mergeStrings picks the guess most similar (confidence-weighted) to every
// other guess as a base, then builds a per-character consensus across all
// guesses padded to the longest observation, each character vote weighted
// by its guess's confidence.
func mergeStrings(guesses []plateGuess) string {
	if len(guesses) == 1 {
		return guesses[0].text
	}

	bestIdx := 0
	bestScore := -1.0
	for i, base := range guesses {
		score := 0.0
		for _, g := range guesses {
			score += similarity(base.text, g.text) * g.conf
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	maxLen := len(guesses[bestIdx].text)
	for _, g := range guesses {
		if len(g.text) > maxLen {
			maxLen = len(g.text)
		}
	}

	var sb strings.Builder
	for pos := 0; pos < maxLen; pos++ {
		var votes [256]float64
		for _, g := range guesses {
			padded := g.text + strings.Repeat(" ", maxLen-len(g.text))
			votes[padded[pos]] += g.conf
		}
		bestChar := byte(' ')
		bestVote := -1.0
		for ch := 0; ch < 256; ch++ {
			if votes[ch] > bestVote {
				bestVote = votes[ch]
				bestChar = byte(ch)
			}
		}
		sb.WriteByte(bestChar)
	}
	return strings.TrimSpace(sb.String())
}
