package domain

// Stage identifies one resumable step of the scraping pipeline.
type Stage int

func (s Stage) String() string {
	switch s {
	case StageCategories:
		return "category"
	case StageProducts:
		return "product"
	case StageExhibitors:
		return "exhibitor"
	default:
		return "unknown"
	}
}

const (
	StageCategories Stage = iota // Category discovery + normalization
	StageProducts                // Product page extraction
	StageExhibitors              // Exhibitor contact harvesting

	StageCount
)

var Stages = []Stage{
	StageCategories,
	StageProducts,
	StageExhibitors,
}
