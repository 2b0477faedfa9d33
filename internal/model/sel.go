package model

// Category is one of the five SEL competency areas
type Category string

const (
	CategorySelfAwareness   Category = "selfAwareness"
	CategorySelfManagement  Category = "selfManagement"
	CategorySocialAwareness Category = "socialAwareness"
	CategoryRelationship    Category = "relationship"
	CategoryDecisionMaking  Category = "decisionMaking"
)

// Categories lists the SEL areas in their canonical order
var Categories = []Category{
	CategorySelfAwareness,
	CategorySelfManagement,
	CategorySocialAwareness,
	CategoryRelationship,
	CategoryDecisionMaking,
}

var categoryNames = map[Category]string{
	CategorySelfAwareness:   "자기인식",
	CategorySelfManagement:  "자기관리",
	CategorySocialAwareness: "사회적 인식",
	CategoryRelationship:    "관계 기술",
	CategoryDecisionMaking:  "의사결정",
}

// Valid reports whether c is one of the five SEL areas
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// KoreanName returns the display name used in counseling reports
func (c Category) KoreanName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// SelScoreSet holds one score per SEL area. All five fields are always present.
type SelScoreSet struct {
	SelfAwareness   float64 `json:"selfAwareness" bson:"selfAwareness"`
	SelfManagement  float64 `json:"selfManagement" bson:"selfManagement"`
	SocialAwareness float64 `json:"socialAwareness" bson:"socialAwareness"`
	Relationship    float64 `json:"relationship" bson:"relationship"`
	DecisionMaking  float64 `json:"decisionMaking" bson:"decisionMaking"`
}

// Get returns the score for a category (0 for an unknown category)
func (s SelScoreSet) Get(c Category) float64 {
	switch c {
	case CategorySelfAwareness:
		return s.SelfAwareness
	case CategorySelfManagement:
		return s.SelfManagement
	case CategorySocialAwareness:
		return s.SocialAwareness
	case CategoryRelationship:
		return s.Relationship
	case CategoryDecisionMaking:
		return s.DecisionMaking
	}
	return 0
}

// Set assigns the score for a category; unknown categories are ignored
func (s *SelScoreSet) Set(c Category, v float64) {
	switch c {
	case CategorySelfAwareness:
		s.SelfAwareness = v
	case CategorySelfManagement:
		s.SelfManagement = v
	case CategorySocialAwareness:
		s.SocialAwareness = v
	case CategoryRelationship:
		s.Relationship = v
	case CategoryDecisionMaking:
		s.DecisionMaking = v
	}
}

// Values returns the scores in Categories order
func (s SelScoreSet) Values() []float64 {
	out := make([]float64, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, s.Get(c))
	}
	return out
}

// CrisisLevel is the qualitative risk tier derived from a SelScoreSet
type CrisisLevel string

const (
	CrisisNormal    CrisisLevel = "normal"
	CrisisAttention CrisisLevel = "attention"
	CrisisWarning   CrisisLevel = "warning"
	CrisisCritical  CrisisLevel = "critical"
)

// Label returns the Korean badge text shown to teachers
func (l CrisisLevel) Label() string {
	switch l {
	case CrisisCritical:
		return "긴급"
	case CrisisWarning:
		return "관심"
	case CrisisAttention:
		return "주의"
	default:
		return "양호"
	}
}
