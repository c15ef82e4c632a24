package course

// Field bounds enforced on authored content. Submissions and patches outside
// these bounds fail validation at the aggregate boundary.
const (
	TitleMinLen       = 10
	TitleMaxLen       = 70
	ShortDescMaxLen   = 125
	DescriptionMaxLen = 1200
	AboutAuthorMaxLen = 600

	SectionTitleMaxLen = 70
	SectionDescMaxLen  = 200

	KeywordsMax   = 10
	KeywordMaxLen = 35
	LearnItemsMax = 10
	RequirementsMax = 10

	PriceMin int64 = 0
	PriceMax int64 = 100_000_000

	ReviewNoteMaxLen = 300

	// MaxVersionlessDrafts caps how many never-published courses an author
	// can accumulate before creating another one is refused.
	MaxVersionlessDrafts = 5
)
