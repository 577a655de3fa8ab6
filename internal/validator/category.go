// Package validator decides whether an uploaded image plausibly matches the
// category the caller declared for it. It combines fast heuristic rejects
// (format, aspect ratio, dominant color, document text tokens) with an
// optional classifier confirmation, and always resolves to an accept/reject
// outcome instead of surfacing errors to the caller.
package validator

// Category is the caller-declared kind of image being uploaded.
type Category string

const (
	// CategoryIdentityCard covers front/back photos of a national ID card.
	CategoryIdentityCard Category = "identity_front_back"
	// CategoryDriverLicense covers driver's license photos.
	CategoryDriverLicense Category = "driver_license"
	// CategoryVehicle covers photos of the vehicle being listed.
	CategoryVehicle Category = "vehicle"
	// CategoryPortrait covers user profile photos.
	CategoryPortrait Category = "portrait"
	// CategoryOther covers everything else and is deliberately permissive.
	CategoryOther Category = "other"
)

// ParseCategory maps a caller-supplied tag to a supported category.
// Unrecognized tags resolve to CategoryOther so an unknown value degrades to
// the least restrictive profile instead of an error.
func ParseCategory(tag string) Category {
	switch Category(tag) {
	case CategoryIdentityCard, CategoryDriverLicense, CategoryVehicle, CategoryPortrait, CategoryOther:
		return Category(tag)
	default:
		return CategoryOther
	}
}
