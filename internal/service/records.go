package service

import (
	"context"
	"fmt"

	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/repository"
)

// Repositories groups the stores the academic services read snapshots from.
type Repositories struct {
	Students     repository.StudentRepository
	Curriculum   repository.CurriculumRepository
	Regularities repository.RegularityRepository
	Exams        repository.ExamRepository
	Enrollments  repository.EnrollmentRepository
	Equivalences repository.EquivalenceRepository
	Decisions    repository.DecisionRepository
}

func (r Repositories) student(ctx context.Context, id uint) (models.Student, error) {
	student, err := r.Students.GetByID(ctx, id)
	if err != nil {
		return models.Student{}, notFound(err, ErrStudentNotFound)
	}
	return student, nil
}

func (r Repositories) subject(ctx context.Context, id uint) (models.Subject, error) {
	subject, err := r.Curriculum.GetSubject(ctx, id)
	if err != nil {
		return models.Subject{}, notFound(err, ErrSubjectNotFound)
	}
	return subject, nil
}

// history loads a student's regularities, exam attempts and equivalences.
func (r Repositories) history(ctx context.Context, studentID uint) (eligibility.History, error) {
	regularities, err := r.Regularities.ListByStudent(ctx, studentID)
	if err != nil {
		return eligibility.History{}, fmt.Errorf("load regularities: %w", err)
	}

	registrations, err := r.Exams.ListRegistrationsByStudent(ctx, studentID)
	if err != nil {
		return eligibility.History{}, fmt.Errorf("load exam registrations: %w", err)
	}

	equivalences, err := r.Equivalences.ListSubjectIDs(ctx, studentID)
	if err != nil {
		return eligibility.History{}, fmt.Errorf("load equivalences: %w", err)
	}

	history := eligibility.History{
		Regularities: make([]eligibility.Regularity, 0, len(regularities)),
		Attempts:     make([]eligibility.Attempt, 0, len(registrations)),
		Equivalences: equivalences,
	}
	for _, regularity := range regularities {
		history.Regularities = append(history.Regularities, regularity.Snapshot())
	}
	for _, registration := range registrations {
		history.Attempts = append(history.Attempts, registration.Snapshot())
	}
	return history, nil
}

// graph loads the subject's plan graph and makes sure the extra subjects can be named.
func (r Repositories) graph(ctx context.Context, planID uint, extra ...uint) (eligibility.Graph, error) {
	graph, err := r.Curriculum.LoadGraph(ctx, planID)
	if err != nil {
		return eligibility.Graph{}, fmt.Errorf("load correlativity graph: %w", err)
	}

	missing := make([]uint, 0)
	for _, id := range extra {
		if _, ok := graph.Subjects[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return graph, nil
	}

	subjects, err := r.Curriculum.ListSubjects(ctx, missing)
	if err != nil {
		return eligibility.Graph{}, fmt.Errorf("load subjects: %w", err)
	}
	for _, subject := range subjects {
		graph.Subjects[subject.ID] = subject.Snapshot()
	}
	return graph, nil
}

func blockSnapshots(blocks []models.ScheduleBlock) []eligibility.Block {
	snapshots := make([]eligibility.Block, 0, len(blocks))
	for _, block := range blocks {
		snapshots = append(snapshots, block.Snapshot())
	}
	return snapshots
}
