package matching

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
)

// UnmatchedReason is reported for responses whose identity matches no roster entry
const UnmatchedReason = "등록된 학생 정보와 일치하지 않습니다."

// RosterStore finds roster entries of one teacher by exact name and class
type RosterStore interface {
	FindByNameAndClass(ctx context.Context, teacherEmail, name, className string) ([]model.Student, error)
}

// Matcher resolves a self-reported identity to a roster entry
type Matcher struct {
	roster RosterStore
	log    *logger.Logger
}

// NewMatcher creates a matcher
func NewMatcher(roster RosterStore, log *logger.Logger) *Matcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Matcher{roster: roster, log: log}
}

// Match returns the exact match (name, class and number), else the first name+class
// candidate annotated as partial, else nil. Candidate order is the roster's result order.
func (m *Matcher) Match(ctx context.Context, teacherEmail string, id model.StudentIdentity) (*model.Student, error) {
	name := strings.TrimSpace(id.Name)
	class := strings.TrimSpace(id.ClassName)

	candidates, err := m.roster.FindByNameAndClass(ctx, teacherEmail, name, class)
	if err != nil {
		return nil, errors.Wrap(err, "roster lookup")
	}

	for i := range candidates {
		if candidates[i].StudentNumber == id.StudentNumber {
			s := candidates[i]
			s.MatchType = ""
			return &s, nil
		}
	}

	if len(candidates) > 0 {
		s := candidates[0]
		s.MatchType = model.MatchTypePartial
		m.log.Info("partial student match",
			"student_id", s.ID,
			"reported_number", id.StudentNumber,
			"roster_number", s.StudentNumber,
			"candidates", len(candidates),
		)
		return &s, nil
	}

	return nil, nil
}
