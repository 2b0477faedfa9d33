package scoring

import "github.com/reallygood83/counselingautomation/internal/model"

// AssignCategories maps n scored answers to SEL categories.
// Explicit per-question metadata is used whenever any question carries it; missing or
// unknown entries then fall back to selfAwareness. Without metadata the positional
// fallback applies: five contiguous equal blocks when n is a multiple of 5, else index % 5.
func AssignCategories(n int, explicit []model.Category) []model.Category {
	if n <= 0 {
		return []model.Category{}
	}
	if hasExplicit(explicit) {
		return fromMetadata(n, explicit)
	}
	return positional(n)
}

func hasExplicit(explicit []model.Category) bool {
	for _, c := range explicit {
		if c != "" {
			return true
		}
	}
	return false
}

func fromMetadata(n int, explicit []model.Category) []model.Category {
	out := make([]model.Category, n)
	for i := range out {
		out[i] = model.CategorySelfAwareness
		if i < len(explicit) && explicit[i].Valid() {
			out[i] = explicit[i]
		}
	}
	return out
}

func positional(n int) []model.Category {
	k := len(model.Categories)
	out := make([]model.Category, n)
	if n%k == 0 {
		block := n / k
		for i := range out {
			out[i] = model.Categories[i/block]
		}
		return out
	}
	for i := range out {
		out[i] = model.Categories[i%k]
	}
	return out
}
