package validator

// ClassRule maps one classifier output index to a semantic label and the
// minimum softmax probability (inclusive) at which it counts as a positive
// signal for the category.
type ClassRule struct {
	ClassID       int
	Label         string
	MinConfidence float32
}

// Profile is the immutable per-category validation configuration. Profiles
// are plain data: all decision flow lives in the stage chain, so thresholds
// can be tuned and tested without touching control flow.
type Profile struct {
	Category Category

	// Aspect-ratio band (width/height). Zero MaxAspect means unbounded.
	MinAspect float64
	MaxAspect float64

	// Images larger than this are downscaled before heuristic statistics
	// are computed, keeping thresholds stable across camera resolutions.
	MaxWidth  int
	MaxHeight int

	// Document categories take the dedicated document path.
	Document bool
	// BackgroundCheck requires a dominant near-white background.
	BackgroundCheck bool
	// TokenCheck requires an ID-number token and a date token in the
	// extracted text.
	TokenCheck bool

	// ColorCheck applies the coarse vehicle color-family pre-filter.
	ColorCheck bool

	// ClassRules gate the category on classifier output when a classifier
	// is configured. Empty means the ML stage is skipped for this category.
	ClassRules []ClassRule

	// SkinFallback enables the HSV skin-tone fallback when no class rule
	// clears its threshold.
	SkinFallback bool
	// AcceptOnClassifierFailure accepts on heuristics alone when inference
	// fails or times out, instead of rejecting.
	AcceptOnClassifierFailure bool
}

// personClassRules gates portrait validation. ImageNet has weak person/face
// coverage, so the table mixes a few nominal person classes with hand-tuned
// confounders: small dog breeds that the model confuses with face crops are
// mapped in at very low thresholds, and clothing/accessory classes act as
// weak person indicators.
var personClassRules = []ClassRule{
	{0, "person", 0.3},
	{1, "face", 0.4},
	{2, "portrait", 0.3},
	{3, "head", 0.3},
	{4, "human", 0.3},

	{151, "chihuahua", 0.1},
	{152, "japanese_spaniel", 0.1},
	{153, "maltese_dog", 0.1},
	{154, "pekinese", 0.1},
	{155, "shih-tzu", 0.1},
	{156, "blenheim_spaniel", 0.1},
	{157, "papillon", 0.1},
	{158, "toy_terrier", 0.1},
	{159, "rhodesian_ridgeback", 0.1},
	{160, "afghan_hound", 0.1},
	{218, "standard_poodle", 0.1},
	{219, "miniature_poodle", 0.1},
	{220, "toy_poodle", 0.1},
	{221, "mexican_hairless", 0.1},

	{243, "maillot", 0.3},
	{244, "sweatshirt", 0.3},
	{245, "jersey", 0.3},
	{246, "academic_gown", 0.3},
	{247, "poncho", 0.3},
	{248, "bulletproof_vest", 0.3},
	{249, "red_wine", 0.1},
	{278, "sunglasses", 0.4},
}

// vehicleClassRules gates vehicle validation on the ImageNet vehicle classes.
var vehicleClassRules = []ClassRule{
	{656, "car", 0.4},
	{817, "car", 0.5},
	{511, "car", 0.4},
	{705, "car", 0.4},
	{627, "car", 0.5},
	{436, "car", 0.3},

	{444, "bike", 0.6},
	{557, "bike", 0.7},

	{864, "truck", 0.5},
	{569, "truck", 0.4},
	{573, "truck", 0.4},

	{654, "van", 0.4},
	{757, "suv", 0.4},

	{779, "bus", 0.5},
	{450, "bus", 0.5},
}

// generalProfile is the permissive fallback for CategoryOther and any
// unrecognized tag: anything that decodes as JPEG/PNG passes.
var generalProfile = &Profile{
	Category:  CategoryOther,
	MaxWidth:  1200,
	MaxHeight: 1200,
}

var profiles = map[Category]*Profile{
	CategoryIdentityCard: {
		Category:        CategoryIdentityCard,
		MinAspect:       1.4,
		MaxAspect:       1.7,
		MaxWidth:        1200,
		MaxHeight:       800,
		Document:        true,
		BackgroundCheck: true,
		TokenCheck:      true,
	},
	CategoryDriverLicense: {
		Category:  CategoryDriverLicense,
		MinAspect: 1.2,
		MaxAspect: 2.0,
		MaxWidth:  1000,
		MaxHeight: 800,
		Document:  true,
	},
	CategoryVehicle: {
		Category:   CategoryVehicle,
		MinAspect:  1.2,
		MaxAspect:  3.0,
		MaxWidth:   800,
		MaxHeight:  600,
		ColorCheck: true,
		ClassRules: vehicleClassRules,
	},
	CategoryPortrait: {
		Category:                  CategoryPortrait,
		MinAspect:                 0.7,
		MaxAspect:                 1.5,
		MaxWidth:                  600,
		MaxHeight:                 600,
		ClassRules:                personClassRules,
		SkinFallback:              true,
		AcceptOnClassifierFailure: true,
	},
	CategoryOther: generalProfile,
}

// profileFor returns the profile for a category, falling back to the
// permissive general profile.
func profileFor(category Category) *Profile {
	if p, ok := profiles[category]; ok {
		return p
	}
	return generalProfile
}
