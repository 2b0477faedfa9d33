package model

import "time"

// MatchTypePartial marks a roster match where name and class agreed but the number did not
const MatchTypePartial = "partial"

// Student is a roster entry owned by a teacher
type Student struct {
	ID            string     `json:"id" bson:"_id,omitempty"`
	StudentName   string     `json:"studentName" bson:"studentName"`
	StudentNumber int        `json:"studentNumber" bson:"studentNumber"`
	ClassName     string     `json:"className" bson:"className"`
	SchoolName    string     `json:"schoolName" bson:"schoolName"`
	TeacherEmail  string     `json:"teacherEmail" bson:"teacherEmail"`
	TeacherName   string     `json:"teacherName" bson:"teacherName"`
	RegisteredAt  time.Time  `json:"registeredAt" bson:"registeredAt"`
	Status        string     `json:"status" bson:"status"`
	SurveyCount   int        `json:"surveyCount" bson:"surveyCount"`
	LastSurveyAt  *time.Time `json:"lastSurveyAt,omitempty" bson:"lastSurveyAt,omitempty"`
	Notes         string     `json:"notes" bson:"notes"`

	// MatchType is set by the matcher only, never stored
	MatchType string `json:"matchType,omitempty" bson:"-"`
}

// StudentIdentity is what a student typed into the identification fields of a form
type StudentIdentity struct {
	Name          string `json:"studentName"`
	ClassName     string `json:"className"`
	StudentNumber int    `json:"studentNumber"`
}
