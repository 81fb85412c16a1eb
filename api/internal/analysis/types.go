package analysis

// Request is the body accepted by the analyze endpoint.
type Request struct {
	Code string `json:"code" validate:"required"`
}

// Result is the normalized answer returned to callers.
type Result struct {
	TimeComplexity  string `json:"time_complexity" validate:"required"`
	SpaceComplexity string `json:"space_complexity" validate:"required"`
	Explanation     string `json:"explanation" validate:"required"`
}

// ключи, которые модель обязана вернуть
const (
	KeyTimeComplexity  = "time_complexity"
	KeySpaceComplexity = "space_complexity"
	KeyExplanation     = "explanation"
)

var resultKeys = []string{KeyTimeComplexity, KeySpaceComplexity, KeyExplanation}
