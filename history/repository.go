package history

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mensylisir/xmdeploy/pipeline/ending"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Open is InitDB followed by NewRepository.
func Open(path string) (*Repository, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return NewRepository(db), nil
}

func (r *Repository) Close() error {
	return CloseDB(r.db)
}

// Record stores a finished deployment.
func (r *Repository) Record(ctx context.Context, s ending.Summary) error {
	row := &Deployment{
		DeploymentID: s.DeploymentID,
		Target:       s.Target,
		LocalPath:    s.LocalPath,
		RemotePath:   s.RemotePath,
		FinalState:   s.FinalState,
		Success:      s.Succeeded(),
		StartedAt:    s.StartedAt,
		DurationMs:   s.Duration.Milliseconds(),
	}
	if s.Err != nil {
		row.Error = s.Err.Error()
	}
	if s.Result != nil {
		code := s.Result.ExitCode
		row.ExitCode = &code
		row.CleanupStatus = s.Result.Cleanup.Status.String()
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.Wrapf(err, "failed to record deployment %s", s.DeploymentID)
	}
	return nil
}

// List returns the most recent deployments first. A non-positive limit
// returns all of them.
func (r *Repository) List(ctx context.Context, limit int) ([]Deployment, error) {
	var rows []Deployment
	q := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list deployments")
	}
	return rows, nil
}

// Get returns one deployment by its deployment ID.
func (r *Repository) Get(ctx context.Context, deploymentID string) (*Deployment, error) {
	row := &Deployment{}
	if err := r.db.WithContext(ctx).Where("deployment_id = ?", deploymentID).First(row).Error; err != nil {
		return nil, errors.Wrapf(err, "deployment %s not found", deploymentID)
	}
	return row, nil
}
