package validator

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/example/imagegate/internal/classifier"
)

// stageDecode decodes the bytes under the decode budget and restricts the
// format to JPEG/PNG. The decoded image is downscaled to the profile's
// working size before any statistics are computed.
func (v *Validator) stageDecode(ctx context.Context, sc *scanState) (verdict, string) {
	img, format, err := decodeImage(ctx, sc.data, v.decodeTimeout)
	if err != nil {
		v.logger.Debug("decode failed", zap.Error(err))
		return verdictReject, ""
	}
	v.logger.Debug("image decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	sc.ratio = aspectRatio(img)
	sc.img = downscale(img, sc.profile.MaxWidth, sc.profile.MaxHeight)
	return verdictDefer, ""
}

// stageDocumentAspect applies the tighter document aspect band.
func (v *Validator) stageDocumentAspect(_ context.Context, sc *scanState) (verdict, string) {
	if sc.ratio < sc.profile.MinAspect || sc.ratio > sc.profile.MaxAspect {
		v.logger.Debug("document aspect out of band", zap.Float64("ratio", sc.ratio))
		return verdictReject, ""
	}
	return verdictDefer, ""
}

// stageDocumentBackground requires the dominant near-white background of an
// identity card photo.
func (v *Validator) stageDocumentBackground(_ context.Context, sc *scanState) (verdict, string) {
	r, g, b := meanRGB(sc.img)
	if !isDocumentBackground(r, g, b) {
		v.logger.Debug("document background too dark",
			zap.Float64("mean_r", r), zap.Float64("mean_g", g), zap.Float64("mean_b", b))
		return verdictReject, ""
	}
	return verdictDefer, ""
}

// stageDocumentTokens requires the ID-number and date tokens in the text
// extracted by the OCR capability. An extraction error counts as a failed
// check: a document we cannot read gates an identity artifact, so strictness
// wins.
func (v *Validator) stageDocumentTokens(ctx context.Context, sc *scanState) (verdict, string) {
	ok, err := v.hasDocumentTokens(ctx, sc.img)
	if err != nil {
		v.logger.Warn("text extraction failed", zap.Error(err))
		return verdictReject, ""
	}
	if !ok {
		return verdictReject, ""
	}
	return verdictDefer, ""
}

// stageAspectRatio applies the category's general aspect band.
func (v *Validator) stageAspectRatio(_ context.Context, sc *scanState) (verdict, string) {
	if sc.ratio < sc.profile.MinAspect || sc.ratio > sc.profile.MaxAspect {
		v.logger.Debug("aspect ratio out of band",
			zap.String("category", string(sc.profile.Category)),
			zap.Float64("ratio", sc.ratio))
		return verdictReject, ""
	}
	return verdictDefer, ""
}

// stageColorHeuristic applies the coarse vehicle color-family pre-filter.
func (v *Validator) stageColorHeuristic(_ context.Context, sc *scanState) (verdict, string) {
	r, g, b := meanRGB(sc.img)
	if !isVehicleColor(r, g, b) {
		v.logger.Debug("unusual vehicle color",
			zap.Float64("mean_r", r), zap.Float64("mean_g", g), zap.Float64("mean_b", b))
		return verdictReject, ""
	}
	return verdictDefer, ""
}

// stageClassify runs inference under the inference budget and applies the
// profile's class rules. A probability equal to a rule's threshold passes.
// On inference failure the profile's policy decides: portrait falls back to
// heuristics (defer), ML-gated categories reject.
func (v *Validator) stageClassify(ctx context.Context, sc *scanState) (verdict, string) {
	result, err := v.classifyWithBudget(ctx, sc.img)
	if err != nil {
		v.logger.Warn("classifier stage failed",
			zap.String("category", string(sc.profile.Category)),
			zap.Error(err))
		if sc.profile.AcceptOnClassifierFailure {
			return verdictDefer, ""
		}
		return verdictReject, StageClassifierFailure
	}

	for _, rule := range sc.profile.ClassRules {
		if p := result.Probability(rule.ClassID); p >= rule.MinConfidence {
			v.logger.Debug("class rule matched",
				zap.String("label", rule.Label),
				zap.Int("class_id", rule.ClassID),
				zap.Float32("probability", p))
			return verdictAccept, ""
		}
	}

	v.logger.Debug("no class rule matched",
		zap.String("category", string(sc.profile.Category)),
		zap.Any("top_classes", result.Top(5)))

	if sc.profile.SkinFallback {
		sc.needsSkin = true
		return verdictDefer, ""
	}
	return verdictReject, ""
}

// stageSkinFallback accepts a portrait whose skin-tone coverage clears the
// threshold after the classifier found no confident class. It only engages
// when the classifier actually ran and was unconfident; after an inference
// failure the portrait is already accepted on heuristics alone.
func (v *Validator) stageSkinFallback(_ context.Context, sc *scanState) (verdict, string) {
	if !sc.needsSkin {
		return verdictDefer, ""
	}
	coverage := skinCoverage(sc.img)
	v.logger.Debug("skin coverage computed", zap.Float64("coverage", coverage))
	if coverage >= skinCoverageMin {
		return verdictAccept, ""
	}
	return verdictReject, ""
}

// classifyWithBudget bounds one inference call. The classifier itself is not
// cancelable mid-run, so the call is abandoned on timeout and its result
// discarded.
func (v *Validator) classifyWithBudget(ctx context.Context, img image.Image) (*classifier.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, v.inferTimeout)
	defer cancel()

	type inference struct {
		result *classifier.Result
		err    error
	}
	ch := make(chan inference, 1)
	go func() {
		result, err := v.classifier.Classify(ctx, img)
		ch <- inference{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.result, out.err
	}
}
