package validator

import (
	"context"
	"image"
	"regexp"
	"strings"
)

// Structured-text tokens expected on a valid identity card: the national ID
// number (NNNNN-NNNNNNN-N) and an issue date written with a full month name.
var (
	idNumberPattern  = regexp.MustCompile(`\d{5}-\d{7}-\d{1}`)
	issueDatePattern = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s\d{1,2},\s\d{4}`)
)

// hasDocumentTokens extracts text through the configured OCR capability and
// requires both the ID-number token and a date token to be present.
func (v *Validator) hasDocumentTokens(ctx context.Context, img image.Image) (bool, error) {
	tokens, err := v.ocr.ExtractTokens(ctx, img)
	if err != nil {
		return false, err
	}
	text := strings.Join(tokens, " ")
	return idNumberPattern.MatchString(text) && issueDatePattern.MatchString(text), nil
}
