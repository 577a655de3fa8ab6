package validator

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/example/imagegate/internal/classifier"
	"github.com/example/imagegate/internal/ocr"
)

// Default wall-clock budgets for the two expensive stages.
const (
	DefaultDecodeTimeout = 5 * time.Second
	DefaultInferTimeout  = 2 * time.Second
)

// Validator decides whether an image matches its declared category. It holds
// no per-call state, so one instance serves all in-flight uploads
// concurrently; the classifier session it shares must allow concurrent
// inference.
type Validator struct {
	classifier    classifier.Classifier
	ocr           ocr.Extractor
	logger        *zap.Logger
	decodeTimeout time.Duration
	inferTimeout  time.Duration
}

// Option adjusts validator construction.
type Option func(*Validator)

// WithDecodeTimeout overrides the decode stage budget.
func WithDecodeTimeout(d time.Duration) Option {
	return func(v *Validator) { v.decodeTimeout = d }
}

// WithInferTimeout overrides the inference stage budget.
func WithInferTimeout(d time.Duration) Option {
	return func(v *Validator) { v.inferTimeout = d }
}

// New builds a validator. cls may be nil, in which case the ML stage is
// skipped entirely and heuristics alone decide. extractor may be nil, in
// which case the static OCR stand-in is used for document token checks.
func New(cls classifier.Classifier, extractor ocr.Extractor, logger *zap.Logger, opts ...Option) *Validator {
	if extractor == nil {
		extractor = ocr.NewStatic()
	}
	v := &Validator{
		classifier:    cls,
		ocr:           extractor,
		logger:        logger.Named("validator"),
		decodeTimeout: DefaultDecodeTimeout,
		inferTimeout:  DefaultInferTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type verdict int

const (
	// verdictDefer passes the decision to the next stage.
	verdictDefer verdict = iota
	verdictAccept
	verdictReject
)

// scanState carries the per-call state threaded through the stage chain.
// ratio is taken from the decoded image before downscaling: resampling rounds
// dimensions to whole pixels and could nudge a boundary image across a band
// edge.
type scanState struct {
	data      []byte
	profile   *Profile
	img       image.Image
	ratio     float64
	needsSkin bool
}

// stage is one named predicate in the ordered decision chain. On reject it
// may name a more specific stage than its chain entry (the classifier stage
// distinguishes an unconfident result from an inference failure).
type stage struct {
	name string
	run  func(ctx context.Context, sc *scanState) (verdict, string)
}

// Validate runs the category's stage chain over the image bytes and resolves
// every failure into a rejection outcome. It never returns an error: decode
// failures, timeouts and classifier faults all become rejections with a
// user-facing reason.
func (v *Validator) Validate(ctx context.Context, data []byte, category Category) Outcome {
	profile := profileFor(category)
	sc := &scanState{data: data, profile: profile}

	for _, st := range v.stages(profile) {
		result, rejectStage := st.run(ctx, sc)
		switch result {
		case verdictAccept:
			v.logger.Debug("image accepted",
				zap.String("category", string(profile.Category)),
				zap.String("stage", st.name))
			return accepted()
		case verdictReject:
			if rejectStage == "" {
				rejectStage = st.name
			}
			outcome := rejected(rejectStage, rejectionReason(rejectStage, profile.Category))
			v.logger.Info("image rejected",
				zap.String("category", string(profile.Category)),
				zap.String("stage", rejectStage),
				zap.String("reason", outcome.Reason))
			return outcome
		}
	}

	// Every stage deferred: the heuristics found nothing wrong.
	v.logger.Debug("image accepted", zap.String("category", string(profile.Category)))
	return accepted()
}

// stages assembles the ordered chain for a profile. The chain is rebuilt per
// call from immutable profile data; stages close over the validator only.
func (v *Validator) stages(p *Profile) []stage {
	chain := []stage{{StageDecode, v.stageDecode}}

	if p.Document {
		chain = append(chain, stage{StageDocumentAspect, v.stageDocumentAspect})
		if p.BackgroundCheck {
			chain = append(chain, stage{StageDocumentBackground, v.stageDocumentBackground})
		}
		if p.TokenCheck {
			chain = append(chain, stage{StageDocumentTokens, v.stageDocumentTokens})
		}
		return chain
	}

	if p.MaxAspect > 0 {
		chain = append(chain, stage{StageAspectRatio, v.stageAspectRatio})
	}
	if p.ColorCheck {
		chain = append(chain, stage{StageColorHeuristic, v.stageColorHeuristic})
	}
	if len(p.ClassRules) > 0 && v.classifier != nil {
		chain = append(chain, stage{StageClassifier, v.stageClassify})
		if p.SkinFallback {
			chain = append(chain, stage{StageSkinFallback, v.stageSkinFallback})
		}
	}
	return chain
}
