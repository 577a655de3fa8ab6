package validator

// Stage names, used in outcomes and logs to identify the rejecting check.
const (
	StageDecode             = "decode"
	StageDocumentAspect     = "document_aspect"
	StageDocumentBackground = "document_background"
	StageDocumentTokens     = "document_tokens"
	StageAspectRatio        = "aspect_ratio"
	StageColorHeuristic     = "color_heuristic"
	StageClassifier         = "classifier"
	StageClassifierFailure  = "classifier_failure"
	StageSkinFallback       = "skin_fallback"
)

// Outcome is the result of one validation call. Reason is a user-facing
// message, set only on rejection; Stage names the check that rejected.
type Outcome struct {
	Accepted bool
	Reason   string
	Stage    string
}

func accepted() Outcome {
	return Outcome{Accepted: true}
}

func rejected(stage string, reason string) Outcome {
	return Outcome{Accepted: false, Reason: reason, Stage: stage}
}

// rejectionReason maps a failing stage and category to a distinct message
// suitable for surfacing to the end user.
func rejectionReason(stage string, category Category) string {
	switch stage {
	case StageDecode:
		return "Unable to read the image. Please upload a valid JPEG or PNG photo."
	case StageDocumentAspect:
		if category == CategoryDriverLicense {
			return "Invalid license image. Please provide a clear photo of the full document."
		}
		return "Invalid identity card image. Ensure the entire card is visible in the frame."
	case StageDocumentBackground:
		return "Identity card background looks wrong. Place the card on a plain light surface and retake the photo."
	case StageDocumentTokens:
		return "Could not read the identity number and issue date. Retake the photo with the text clearly visible."
	case StageAspectRatio:
		if category == CategoryPortrait {
			return "Portrait has unexpected framing. Use a head-and-shoulders style photo."
		}
		return "Vehicle photo has unexpected framing. Use a landscape photo showing the whole vehicle."
	case StageColorHeuristic:
		return "Image doesn't appear to be a vehicle. Please provide a clear photo of the vehicle."
	case StageClassifier:
		if category == CategoryVehicle {
			return "Could not confirm the image shows a vehicle. Please provide a clearer photo of the vehicle."
		}
		return "Could not verify the image. Please try again with a clearer photo."
	case StageClassifierFailure:
		return "The image could not be verified right now. Please try again in a moment."
	case StageSkinFallback:
		return "Image doesn't appear to be a person. Please provide a clear portrait."
	default:
		return "Image validation failed."
	}
}
