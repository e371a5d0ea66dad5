package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"capitoro/internal/domain"
	"capitoro/internal/observability"
	"capitoro/internal/storage"
)

// ProjectStore implements storage.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *Pool
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(pool *Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProjectStore = (*ProjectStore)(nil)

const projectColumns = `
	id, entrepreneur_id, entrepreneur_wallet_address, name, description,
	category, status, funding_goal::text, created_at
`

// Insert adds a new project. Returns ErrDuplicateKey if id exists.
func (s *ProjectStore) Insert(ctx context.Context, p *domain.Project) error {
	if p == nil || p.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	stage := p.Stage
	if stage == "" {
		stage = domain.StageIdea
	}

	query := `
		INSERT INTO projects (
			id, entrepreneur_id, entrepreneur_wallet_address, name, description,
			category, status, funding_goal, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.EntrepreneurID, p.EntrepreneurWallet, p.Name, p.Description,
		p.Category, string(stage), p.FundingGoal.String(), p.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_project", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return p, nil
}

// List retrieves projects matching filter, newest first.
func (s *ProjectStore) List(ctx context.Context, filter domain.ProjectFilter) ([]*domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, name ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, filter.Category, escapeLike(filter.Search))
	observability.RecordDBQuery("postgres", "list_projects", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return projects, nil
}

// scanProject scans a single row into Project.
func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p     domain.Project
		stage string
		goal  string
	)

	err := row.Scan(
		&p.ID, &p.EntrepreneurID, &p.EntrepreneurWallet, &p.Name, &p.Description,
		&p.Category, &stage, &goal, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Stage = domain.ProjectStage(stage)
	p.FundingGoal, err = decimal.NewFromString(goal)
	if err != nil {
		return nil, fmt.Errorf("parse funding goal %q: %w", goal, err)
	}
	return &p, nil
}
