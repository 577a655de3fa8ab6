// Package classifier wraps a pretrained 1000-class image classifier behind a
// small interface so the validator can be exercised with stub models in tests
// and run without any model at all when ML validation is disabled.
package classifier

import (
	"context"
	"image"
	"math"
	"sort"
)

// NumClasses is the label-space cardinality of the pretrained model.
const NumClasses = 1000

// Result holds the per-class probability vector for one inference call.
// Probabilities are produced by softmax over raw logits and sum to 1.
type Result struct {
	Probabilities []float32
}

// Classifier produces class probabilities for a decoded image. Implementations
// must be safe for concurrent calls: the validator shares one instance across
// all in-flight uploads.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (*Result, error)
}

// Probability returns the probability of a single class, or 0 when the class
// index is outside the model's label space.
func (r *Result) Probability(classID int) float32 {
	if r == nil || classID < 0 || classID >= len(r.Probabilities) {
		return 0
	}
	return r.Probabilities[classID]
}

// ClassScore pairs a class index with its probability, used for debug logging.
type ClassScore struct {
	ClassID     int
	Probability float32
}

// Top returns the n most probable classes in descending order.
func (r *Result) Top(n int) []ClassScore {
	if r == nil {
		return nil
	}
	scores := make([]ClassScore, len(r.Probabilities))
	for i, p := range r.Probabilities {
		scores[i] = ClassScore{ClassID: i, Probability: p}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Probability > scores[j].Probability })
	if n > len(scores) {
		n = len(scores)
	}
	return scores[:n]
}

// Softmax converts raw logits into a probability distribution. The max logit
// is subtracted first to keep the exponentials stable.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}
	return probs
}
