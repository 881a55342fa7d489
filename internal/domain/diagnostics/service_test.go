package diagnostics

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

type mockPatients map[int64]string

func (m mockPatients) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := m[id]
	return ok, nil
}

type mockExamRepo struct {
	exams    map[int64]*Exam
	nextID   int64
	patients mockPatients
	clock    time.Time
}

func newMockExamRepo(patients mockPatients) *mockExamRepo {
	return &mockExamRepo{
		exams:    make(map[int64]*Exam),
		patients: patients,
		clock:    time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *mockExamRepo) Create(_ context.Context, e *Exam) error {
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	e.ID = m.nextID
	e.CreatedAt = m.clock
	e.UpdatedAt = m.clock
	cp := *e
	m.exams[e.ID] = &cp
	return nil
}

func (m *mockExamRepo) GetByID(_ context.Context, id int64) (*Exam, error) {
	e, ok := m.exams[id]
	if !ok {
		return nil, apperr.NotFound("exam", id)
	}
	cp := *e
	cp.PatientName = m.patients[e.PatientID]
	return &cp, nil
}

func (m *mockExamRepo) GetForUpdate(ctx context.Context, id int64) (*Exam, error) {
	return m.GetByID(ctx, id)
}

func (m *mockExamRepo) List(_ context.Context, f ListFilter, pg pagination.Params) ([]*Exam, int, error) {
	var out []*Exam
	for _, e := range m.exams {
		if f.PatientID != 0 && e.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		cp := *e
		cp.PatientName = m.patients[e.PatientID]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return pagination.Page(out, pg), len(out), nil
}

func (m *mockExamRepo) Update(_ context.Context, e *Exam) error {
	old, ok := m.exams[e.ID]
	if !ok {
		return apperr.NotFound("exam", e.ID)
	}
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = time.Now()
	cp := *e
	m.exams[e.ID] = &cp
	return nil
}

func (m *mockExamRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.exams[id]; !ok {
		return apperr.NotFound("exam", id)
	}
	delete(m.exams, id)
	return nil
}

func newTestService() (*Service, *mockExamRepo) {
	patients := mockPatients{1: "Ana Martínez"}
	repo := newMockExamRepo(patients)
	return NewService(repo, patients, db.Inline), repo
}

func TestCreateExam_DefaultsPending(t *testing.T) {
	svc, _ := newTestService()
	e := &Exam{PatientID: 1, ExamType: "hemograma", Laboratory: "Lab Central"}
	if err := svc.CreateExam(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Status != "pending" {
		t.Errorf("expected pending, got %s", e.Status)
	}
}

func TestCreateExam_Errors(t *testing.T) {
	tests := []struct {
		name string
		exam Exam
		want error
	}{
		{"missing patient", Exam{ExamType: "rx"}, apperr.ErrValidation},
		{"missing type", Exam{PatientID: 1}, apperr.ErrValidation},
		{"bad status", Exam{PatientID: 1, ExamType: "rx", Status: "done"}, apperr.ErrValidation},
		{"unknown patient", Exam{PatientID: 4, ExamType: "rx"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			exam := tt.exam
			if err := svc.CreateExam(context.Background(), &exam); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateExam_Strict(t *testing.T) {
	svc, _ := newTestService()
	svc.SetPolicy(rules.Strict)
	ctx := context.Background()
	e := &Exam{PatientID: 1, ExamType: "rx"}
	svc.CreateExam(ctx, e)

	steps := []struct {
		to string
		ok bool
	}{
		{"in_progress", true},
		{"pending", false},
		{"completed", true},
		{"cancelled", false},
	}
	for _, step := range steps {
		upd := &Exam{ID: e.ID, PatientID: 1, ExamType: "rx", Status: step.to}
		err := svc.UpdateExam(ctx, upd)
		if step.ok && err != nil {
			t.Errorf("-> %s: unexpected error %v", step.to, err)
		}
		if !step.ok && !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("-> %s: expected validation error, got %v", step.to, err)
		}
	}
	got, _ := svc.GetExam(ctx, e.ID)
	if got.Status != "completed" {
		t.Errorf("expected completed, got %s", got.Status)
	}
}

func TestUpdateExam_ResultsKeepStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	e := &Exam{PatientID: 1, ExamType: "rx", Status: "in_progress"}
	svc.CreateExam(ctx, e)
	upd := &Exam{ID: e.ID, PatientID: 1, ExamType: "rx", Results: "normal"}
	if err := svc.UpdateExam(ctx, upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upd.Status != "in_progress" || upd.Results != "normal" || upd.PatientName != "Ana Martínez" {
		t.Errorf("unexpected exam: %+v", upd)
	}
}

func TestListExams_StatusFilter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.CreateExam(ctx, &Exam{PatientID: 1, ExamType: "a"})
	svc.CreateExam(ctx, &Exam{PatientID: 1, ExamType: "b", Status: "completed"})
	svc.CreateExam(ctx, &Exam{PatientID: 1, ExamType: "c"})

	items, total, err := svc.ListExams(ctx, ListFilter{Status: "pending"}, pagination.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || items[0].ExamType != "c" {
		t.Errorf("expected newest pending first, got %d items starting %q", total, items[0].ExamType)
	}
}

func TestDeleteExam_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.DeleteExam(context.Background(), 8); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
