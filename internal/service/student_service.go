package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"github.com/reallygood83/counselingautomation/internal/repository"
)

const StudentStatusActive = "active"

// StudentInput is one roster row submitted by a teacher
type StudentInput struct {
	StudentName   string `json:"studentName"`
	StudentNumber int    `json:"studentNumber"`
	ClassName     string `json:"className"`
	SchoolName    string `json:"schoolName"`
}

// BulkRowError describes a roster row that could not be registered
type BulkRowError struct {
	Student string `json:"student"`
	Error   string `json:"error"`
}

// BulkResult is the outcome of a bulk registration
type BulkResult struct {
	Registered int              `json:"registered"`
	Failed     int              `json:"failed"`
	Results    []*model.Student `json:"results"`
	Errors     []BulkRowError   `json:"errors"`
}

// StudentService manages the teacher's roster
type StudentService struct {
	repo repository.StudentRepo
	log  *logger.Logger
}

// NewStudentService creates a new student service
func NewStudentService(repo repository.StudentRepo, log *logger.Logger) *StudentService {
	if log == nil {
		log = logger.Nop()
	}
	return &StudentService{repo: repo, log: log}
}

func (in StudentInput) validate() error {
	if strings.TrimSpace(in.StudentName) == "" || in.StudentNumber <= 0 || strings.TrimSpace(in.ClassName) == "" {
		return errors.Wrap(ErrInvalidInput, "학생명, 학번, 학급은 필수 입력 항목입니다.")
	}
	return nil
}

// Register adds one student; (teacher, class, number) must be unique
func (s *StudentService) Register(ctx context.Context, teacherEmail, teacherName string, in StudentInput) (*model.Student, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	student := &model.Student{
		StudentName:   strings.TrimSpace(in.StudentName),
		StudentNumber: in.StudentNumber,
		ClassName:     strings.TrimSpace(in.ClassName),
		SchoolName:    strings.TrimSpace(in.SchoolName),
		TeacherEmail:  teacherEmail,
		TeacherName:   teacherName,
		Status:        StudentStatusActive,
	}

	exists, err := s.repo.ExistsByNumber(ctx, teacherEmail, student.ClassName, student.StudentNumber)
	if err != nil {
		return nil, errors.Wrap(err, "check duplicate")
	}
	if exists {
		return nil, errors.Wrapf(ErrDuplicateStudent, "%s에 이미 %d번 학생이 등록되어 있습니다.", student.ClassName, student.StudentNumber)
	}

	id, err := s.repo.Create(ctx, student)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Wrapf(ErrDuplicateStudent, "%s에 이미 %d번 학생이 등록되어 있습니다.", student.ClassName, student.StudentNumber)
		}
		return nil, errors.Wrap(err, "create student")
	}
	student.ID = id
	s.log.Info("student registered", "student_id", student.ID, "class", student.ClassName)
	return student, nil
}

// BulkRegister registers every row it can and reports the rest
func (s *StudentService) BulkRegister(ctx context.Context, teacherEmail, teacherName string, rows []StudentInput) (*BulkResult, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "등록할 학생 목록이 필요합니다.")
	}
	out := &BulkResult{Results: []*model.Student{}, Errors: []BulkRowError{}}
	for _, row := range rows {
		student, err := s.Register(ctx, teacherEmail, teacherName, row)
		if err != nil {
			name := strings.TrimSpace(row.StudentName)
			if name == "" {
				name = "이름없음"
			}
			out.Errors = append(out.Errors, BulkRowError{Student: name, Error: rowMessage(err)})
			continue
		}
		out.Results = append(out.Results, student)
	}
	out.Registered = len(out.Results)
	out.Failed = len(out.Errors)
	s.log.Info("bulk registration finished", "registered", out.Registered, "failed", out.Failed)
	return out, nil
}

func rowMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDuplicateStudent):
		msg := err.Error()
		if i := strings.LastIndex(msg, ": "); i >= 0 {
			return msg[:i]
		}
		return msg
	default:
		return "등록 중 오류가 발생했습니다."
	}
}

// List returns the roster sorted by class then number, optionally for one class
func (s *StudentService) List(ctx context.Context, teacherEmail, className string) ([]*model.Student, error) {
	students, err := s.repo.ListByTeacher(ctx, teacherEmail, strings.TrimSpace(className))
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	if students == nil {
		students = []*model.Student{}
	}
	return students, nil
}

// Delete removes a student owned by the teacher
func (s *StudentService) Delete(ctx context.Context, teacherEmail, studentID string) error {
	student, err := s.repo.GetByID(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "load student")
	}
	if student == nil {
		return ErrStudentNotFound
	}
	if student.TeacherEmail != teacherEmail {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, studentID); err != nil {
		return errors.Wrap(err, "delete student")
	}
	s.log.Info("student deleted", "student_id", studentID)
	return nil
}
