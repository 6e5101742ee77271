package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/models"
)

// CurriculumRepository reads plans, subjects and the correlativity graph.
type CurriculumRepository interface {
	GetSubject(ctx context.Context, id uint) (models.Subject, error)
	FindSubjectByCode(ctx context.Context, planIDs []uint, code string) (models.Subject, error)
	ListSubjects(ctx context.Context, ids []uint) ([]models.Subject, error)
	LoadGraph(ctx context.Context, planID uint) (eligibility.Graph, error)
}

type curriculumRepository struct {
	db *gorm.DB
}

// NewCurriculumRepository constructs the curriculum repository.
func NewCurriculumRepository(db *gorm.DB) CurriculumRepository {
	return &curriculumRepository{db: db}
}

func (r *curriculumRepository) GetSubject(ctx context.Context, id uint) (models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}

func (r *curriculumRepository) FindSubjectByCode(ctx context.Context, planIDs []uint, code string) (models.Subject, error) {
	if len(planIDs) == 0 {
		return models.Subject{}, gorm.ErrRecordNotFound
	}

	var subject models.Subject
	err := r.db.WithContext(ctx).
		Where("plan_id IN ?", planIDs).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		Order("plan_id ASC").
		First(&subject).Error
	if err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}

func (r *curriculumRepository) ListSubjects(ctx context.Context, ids []uint) ([]models.Subject, error) {
	if len(ids) == 0 {
		return []models.Subject{}, nil
	}

	var subjects []models.Subject
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

// LoadGraph returns the plan's subjects, versions and every edge pointing at a plan subject.
// Prerequisites living in another plan are loaded too so reasons can name them.
func (r *curriculumRepository) LoadGraph(ctx context.Context, planID uint) (eligibility.Graph, error) {
	db := r.db.WithContext(ctx)

	var subjects []models.Subject
	if err := db.Where("plan_id = ?", planID).Find(&subjects).Error; err != nil {
		return eligibility.Graph{}, err
	}

	var edges []models.Correlativity
	planSubjects := db.Model(&models.Subject{}).Select("id").Where("plan_id = ?", planID)
	if err := db.Where("subject_id IN (?)", planSubjects).Order("id ASC").Find(&edges).Error; err != nil {
		return eligibility.Graph{}, err
	}

	var versions []models.CorrelativityVersion
	if err := db.Where("plan_id = ?", planID).Order("id ASC").Find(&versions).Error; err != nil {
		return eligibility.Graph{}, err
	}

	graph := eligibility.Graph{
		Subjects: make(map[uint]eligibility.Subject, len(subjects)),
		Edges:    make([]eligibility.Edge, 0, len(edges)),
		Versions: make([]eligibility.Version, 0, len(versions)),
	}
	for _, subject := range subjects {
		graph.Subjects[subject.ID] = subject.Snapshot()
	}

	missing := make([]uint, 0)
	for _, edge := range edges {
		graph.Edges = append(graph.Edges, edge.Snapshot())
		if _, ok := graph.Subjects[edge.PrerequisiteID]; !ok {
			missing = append(missing, edge.PrerequisiteID)
		}
	}
	for _, version := range versions {
		graph.Versions = append(graph.Versions, version.Snapshot())
	}

	if len(missing) > 0 {
		external, err := r.ListSubjects(ctx, missing)
		if err != nil {
			return eligibility.Graph{}, err
		}
		for _, subject := range external {
			graph.Subjects[subject.ID] = subject.Snapshot()
		}
	}

	return graph, nil
}
