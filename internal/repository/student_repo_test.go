package repository

import (
	"context"
	"testing"

	"github.com/reallygood83/counselingautomation/internal/logger"
	"github.com/reallygood83/counselingautomation/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// newMockStudentRepo answers the two index builds so later mock responses line up with the test's calls
func newMockStudentRepo(mt *mtest.T) StudentRepo {
	mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())
	repo := NewStudentRepo(mt.DB, logger.Nop())
	mt.ClearEvents()
	return repo
}

func TestStudentRepoFindByNameAndClass(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("candidates in _id order", func(mt *mtest.T) {
		repo := newMockStudentRepo(mt)
		ns := mt.DB.Name() + ".students"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "stu-1"}, {Key: "studentName", Value: "김민수"}, {Key: "className", Value: "3-1"}, {Key: "studentNumber", Value: 4}},
			bson.D{{Key: "_id", Value: "stu-2"}, {Key: "studentName", Value: "김민수"}, {Key: "className", Value: "3-1"}, {Key: "studentNumber", Value: 9}},
		))

		got, err := repo.FindByNameAndClass(context.Background(), "teacher@school.kr", "김민수", "3-1")
		if err != nil {
			mt.Fatalf("find: %v", err)
		}
		if len(got) != 2 || got[0].ID != "stu-1" || got[1].ID != "stu-2" || got[1].StudentNumber != 9 {
			mt.Fatalf("students: got=%+v", got)
		}

		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "find" {
			mt.Fatalf("started event: got=%+v", evt)
		}
		if _, err := evt.Command.LookupErr("sort", "_id"); err != nil {
			mt.Fatalf("find must sort on _id: %s", evt.Command)
		}
		for key, want := range map[string]string{
			"teacherEmail": "teacher@school.kr",
			"studentName":  "김민수",
			"className":    "3-1",
		} {
			if got := evt.Command.Lookup("filter", key).StringValue(); got != want {
				mt.Fatalf("filter %s: want=%s got=%s", key, want, got)
			}
		}
	})

	mt.Run("no candidates", func(mt *mtest.T) {
		repo := newMockStudentRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".students", mtest.FirstBatch))

		got, err := repo.FindByNameAndClass(context.Background(), "teacher@school.kr", "없는학생", "3-1")
		if err != nil {
			mt.Fatalf("find: %v", err)
		}
		if len(got) != 0 {
			mt.Fatalf("students: want none got=%+v", got)
		}
	})
}

func TestStudentRepoCreate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("assigns id", func(mt *mtest.T) {
		repo := newMockStudentRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		student := &model.Student{StudentName: "이영희", ClassName: "3-1", StudentNumber: 2, TeacherEmail: "teacher@school.kr"}
		id, err := repo.Create(context.Background(), student)
		if err != nil {
			mt.Fatalf("create: %v", err)
		}
		if len(id) != 24 || student.ID != id {
			mt.Fatalf("id: got=%q student.ID=%q", id, student.ID)
		}
		if student.RegisteredAt.IsZero() {
			mt.Fatal("registeredAt not stamped")
		}
	})

	mt.Run("duplicate number", func(mt *mtest.T) {
		repo := newMockStudentRepo(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := repo.Create(context.Background(), &model.Student{StudentName: "이영희", ClassName: "3-1", StudentNumber: 2})
		if err != ErrDuplicate {
			mt.Fatalf("err: want=%v got=%v", ErrDuplicate, err)
		}
	})
}

func TestStudentRepoGetByIDRejectsMalformedID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("malformed", func(mt *mtest.T) {
		repo := newMockStudentRepo(mt)
		got, err := repo.GetByID(context.Background(), "not-an-object-id")
		if err != nil || got != nil {
			mt.Fatalf("want=(nil,nil) got=(%+v,%v)", got, err)
		}
	})
}
