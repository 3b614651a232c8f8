package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Catalogs ---

func (s *PostgresStore) GetCatalogs(ctx context.Context) (*scoring.Catalogs, error) {
	c := &scoring.Catalogs{}

	rows, err := s.pool.Query(ctx, `
		SELECT id, label, physical_condition, classification, depreciation_coefficient
		FROM conservation_states ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var cs scoring.ConservationState
		if err := rows.Scan(&cs.ID, &cs.Label, &cs.PhysicalCondition, &cs.Classification, &cs.DepreciationCoefficient); err != nil {
			rows.Close()
			return nil, err
		}
		c.ConservationStates = append(c.ConservationStates, cs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, name, nominal_weight
		FROM components ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var comp scoring.Component
		if err := rows.Scan(&comp.ID, &comp.Name, &comp.NominalWeight); err != nil {
			rows.Close()
			return nil, err
		}
		c.Components = append(c.Components, comp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT kind, id, label, points
		FROM serviceability_states ORDER BY kind ASC, position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var st scoring.ServiceabilityState
		if err := rows.Scan(&kind, &st.ID, &st.Label, &st.Points); err != nil {
			return nil, err
		}
		switch kind {
		case serviceabilityFunctionality:
			c.Serviceability.Functionality = append(c.Serviceability.Functionality, st)
		case serviceabilityNormative:
			c.Serviceability.Normative = append(c.Serviceability.Normative, st)
		}
	}
	return c, rows.Err()
}

const (
	serviceabilityFunctionality = "functionality"
	serviceabilityNormative     = "normative"
)

// ReplaceCatalogs swaps every catalog table in one transaction. Slice order
// is persisted as position so reads return the catalog as it was written.
func (s *PostgresStore) ReplaceCatalogs(ctx context.Context, catalogs scoring.Catalogs) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"conservation_states", "components", "serviceability_states"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, cs := range catalogs.ConservationStates {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conservation_states (id, label, physical_condition, classification, depreciation_coefficient, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			cs.ID, cs.Label, cs.PhysicalCondition, cs.Classification, cs.DepreciationCoefficient, i,
		); err != nil {
			return fmt.Errorf("insert conservation state %s: %w", cs.ID, err)
		}
	}
	for i, comp := range catalogs.Components {
		if _, err := tx.Exec(ctx, `
			INSERT INTO components (id, name, nominal_weight, position)
			VALUES ($1, $2, $3, $4)`,
			comp.ID, comp.Name, comp.NominalWeight, i,
		); err != nil {
			return fmt.Errorf("insert component %s: %w", comp.ID, err)
		}
	}
	states := map[string][]scoring.ServiceabilityState{
		serviceabilityFunctionality: catalogs.Serviceability.Functionality,
		serviceabilityNormative:     catalogs.Serviceability.Normative,
	}
	for _, kind := range []string{serviceabilityFunctionality, serviceabilityNormative} {
		for i, st := range states[kind] {
			if _, err := tx.Exec(ctx, `
				INSERT INTO serviceability_states (kind, id, label, points, position)
				VALUES ($1, $2, $3, $4, $5)`,
				kind, st.ID, st.Label, st.Points, i,
			); err != nil {
				return fmt.Errorf("insert %s state %s: %w", kind, st.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Weight configuration ---

// GetConfiguration returns nil when no configuration has been stored yet.
func (s *PostgresStore) GetConfiguration(ctx context.Context) (*Configuration, error) {
	cfg := &Configuration{}
	var updatedBy sql.NullString
	err := s.pool.QueryRow(ctx, `
		SELECT version, updated_by, updated_at FROM weight_configuration WHERE id = 1`,
	).Scan(&cfg.Version, &updatedBy, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg.UpdatedBy = updatedBy.String

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, weight_percent FROM weight_axes ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var a scoring.Axis
		if err := rows.Scan(&a.ID, &a.Name, &a.WeightPercent); err != nil {
			rows.Close()
			return nil, err
		}
		cfg.Axes = append(cfg.Axes, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, axis_id, name, weight_percent FROM weight_criteria ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c scoring.Criterion
		if err := rows.Scan(&c.ID, &c.AxisID, &c.Name, &c.WeightPercent); err != nil {
			rows.Close()
			return nil, err
		}
		cfg.Criteria = append(cfg.Criteria, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, criterion_id, label, value FROM weight_parameters ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p scoring.Parameter
		if err := rows.Scan(&p.ID, &p.CriterionID, &p.Label, &p.Value); err != nil {
			return nil, err
		}
		cfg.Parameters = append(cfg.Parameters, p)
	}
	return cfg, rows.Err()
}

// ReplaceConfiguration writes a whole hierarchy in one transaction and sets
// cfg.UpdatedAt from the database clock.
func (s *PostgresStore) ReplaceConfiguration(ctx context.Context, cfg *Configuration) error {
	if cfg.Version == "" {
		return fmt.Errorf("configuration version is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Children first for the foreign keys.
	for _, table := range []string{"weight_parameters", "weight_criteria", "weight_axes"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, a := range cfg.Axes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weight_axes (id, name, weight_percent, position) VALUES ($1, $2, $3, $4)`,
			a.ID, a.Name, a.WeightPercent, i,
		); err != nil {
			return fmt.Errorf("insert axis %s: %w", a.ID, err)
		}
	}
	for i, c := range cfg.Criteria {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weight_criteria (id, axis_id, name, weight_percent, position) VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.AxisID, c.Name, c.WeightPercent, i,
		); err != nil {
			return fmt.Errorf("insert criterion %s: %w", c.ID, err)
		}
	}
	for i, p := range cfg.Parameters {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weight_parameters (id, criterion_id, label, value, position) VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.CriterionID, p.Label, p.Value, i,
		); err != nil {
			return fmt.Errorf("insert parameter %s: %w", p.ID, err)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO weight_configuration (id, version, updated_by, updated_at)
		VALUES (1, $1, NULLIF($2, ''), now())
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		cfg.Version, cfg.UpdatedBy,
	).Scan(&cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert configuration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Evaluations ---

const evaluationColumns = `id, building_code, evaluated_by,
	principal_state_id, principal, remodeling_state_id, remodeling,
	component_ratings, serviceability,
	depreciation, components, serviceability_score, sub_score, total_building_score,
	reviewed, reviewed_by, reviewed_at, created_at`

func (s *PostgresStore) CreateEvaluation(ctx context.Context, e *scoring.Evaluation) error {
	principalJSON, _ := json.Marshal(e.Principal)
	var remodelingJSON []byte
	if e.Remodeling != nil {
		remodelingJSON, _ = json.Marshal(e.Remodeling)
	}
	ratingsJSON, _ := json.Marshal(e.ComponentRatings)
	serviceabilityJSON, _ := json.Marshal(e.Serviceability)
	depreciationJSON, _ := json.Marshal(e.Depreciation)
	componentsJSON, _ := json.Marshal(e.Components)
	subScoreJSON, _ := json.Marshal(e.SubScore)

	return s.pool.QueryRow(ctx, `
		INSERT INTO building_evaluations (building_code, evaluated_by,
			principal_state_id, principal, remodeling_state_id, remodeling,
			component_ratings, serviceability,
			depreciation, components, serviceability_score, sub_score, total_building_score)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`,
		e.BuildingCode, e.EvaluatedBy,
		e.PrincipalStateID, principalJSON, e.RemodelingStateID, remodelingJSON,
		ratingsJSON, serviceabilityJSON,
		depreciationJSON, componentsJSON, e.ServiceabilityScore, subScoreJSON, e.TotalBuildingScore,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id uuid.UUID) (*scoring.Evaluation, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM building_evaluations WHERE id = $1`, id)
	e, err := scanEvaluation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// GetLatestEvaluation returns the most recent evaluation of a building, or nil
// when the building has never been evaluated.
func (s *PostgresStore) GetLatestEvaluation(ctx context.Context, buildingCode string) (*scoring.Evaluation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+evaluationColumns+` FROM building_evaluations
		WHERE building_code = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, buildingCode)
	e, err := scanEvaluation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]*scoring.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM building_evaluations WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.BuildingCode != "" {
		n++
		query += fmt.Sprintf(" AND building_code = $%d", n)
		args = append(args, filter.BuildingCode)
	}
	if filter.Reviewed != nil {
		n++
		query += fmt.Sprintf(" AND reviewed = $%d", n)
		args = append(args, *filter.Reviewed)
	}

	query += " ORDER BY created_at DESC, id DESC"
	query, args = paginate(query, args, n, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*scoring.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEvaluationReview persists the review flag only. Scores are never
// rewritten after creation.
func (s *PostgresStore) UpdateEvaluationReview(ctx context.Context, e *scoring.Evaluation) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE building_evaluations SET reviewed = $2, reviewed_by = NULLIF($3, ''), reviewed_at = $4
		WHERE id = $1`,
		e.ID, e.Reviewed, e.ReviewedBy, e.ReviewedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("evaluation %s not found", e.ID)
	}
	return nil
}

func scanEvaluation(row pgx.Row) (*scoring.Evaluation, error) {
	e := &scoring.Evaluation{}
	var evaluatedBy, remodelingStateID, reviewedBy sql.NullString
	var principalJSON, remodelingJSON, ratingsJSON, serviceabilityJSON []byte
	var depreciationJSON, componentsJSON, subScoreJSON []byte
	err := row.Scan(
		&e.ID, &e.BuildingCode, &evaluatedBy,
		&e.PrincipalStateID, &principalJSON, &remodelingStateID, &remodelingJSON,
		&ratingsJSON, &serviceabilityJSON,
		&depreciationJSON, &componentsJSON, &e.ServiceabilityScore, &subScoreJSON, &e.TotalBuildingScore,
		&e.Reviewed, &reviewedBy, &e.ReviewedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.EvaluatedBy = evaluatedBy.String
	e.RemodelingStateID = remodelingStateID.String
	e.ReviewedBy = reviewedBy.String

	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{principalJSON, &e.Principal},
		{ratingsJSON, &e.ComponentRatings},
		{serviceabilityJSON, &e.Serviceability},
		{depreciationJSON, &e.Depreciation},
		{componentsJSON, &e.Components},
		{subScoreJSON, &e.SubScore},
	} {
		if f.data == nil {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, fmt.Errorf("decode evaluation %s: %w", e.ID, err)
		}
	}
	if remodelingJSON != nil {
		e.Remodeling = &scoring.RemodelingInput{}
		if err := json.Unmarshal(remodelingJSON, e.Remodeling); err != nil {
			return nil, fmt.Errorf("decode evaluation %s remodeling: %w", e.ID, err)
		}
	}
	return e, nil
}

// --- Projects ---

const projectColumns = `id, name, building_type, building_code, selections,
	status, revision, created_by, scoring_error, score,
	scored_at, finalized_at, created_at, updated_at`

func (s *PostgresStore) CreateProject(ctx context.Context, p *scoring.Project) error {
	selectionsJSON, _ := json.Marshal(p.Selections)
	scoreJSON, total := projectScore(p)

	return s.pool.QueryRow(ctx, `
		INSERT INTO projects (name, building_type, building_code, selections,
			status, revision, created_by, scoring_error, score, total_score, scored_at, finalized_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		p.Name, p.BuildingType, p.BuildingCode, selectionsJSON,
		p.Status, p.Revision, p.CreatedBy, p.ScoringError, scoreJSON, total, p.ScoredAt, p.FinalizedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*scoring.Project, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]*scoring.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.BuildingType != nil {
		n++
		query += fmt.Sprintf(" AND building_type = $%d", n)
		args = append(args, string(*filter.BuildingType))
	}
	if filter.BuildingCode != "" {
		n++
		query += fmt.Sprintf(" AND building_code = $%d", n)
		args = append(args, filter.BuildingCode)
	}

	query += " ORDER BY created_at ASC, id ASC"
	query, args = paginate(query, args, n, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

// UpdateProject writes the full project row and bumps updated_at.
func (s *PostgresStore) UpdateProject(ctx context.Context, p *scoring.Project) error {
	selectionsJSON, _ := json.Marshal(p.Selections)
	scoreJSON, total := projectScore(p)

	err := s.pool.QueryRow(ctx, `
		UPDATE projects SET
			name = $2, building_type = $3, building_code = NULLIF($4, ''), selections = $5,
			status = $6, revision = $7, scoring_error = $8, score = $9, total_score = $10,
			scored_at = $11, finalized_at = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.BuildingType, p.BuildingCode, selectionsJSON,
		p.Status, p.Revision, p.ScoringError, scoreJSON, total,
		p.ScoredAt, p.FinalizedAt,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("project %s not found", p.ID)
	}
	return err
}

func (s *PostgresStore) GetDraftProjects(ctx context.Context) ([]*scoring.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects WHERE status = 'DRAFT'
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func projectScore(p *scoring.Project) ([]byte, *float64) {
	if p.Score == nil {
		return nil, nil
	}
	data, _ := json.Marshal(p.Score)
	total := p.Score.Total
	return data, &total
}

func scanProject(row pgx.Row) (*scoring.Project, error) {
	p := &scoring.Project{}
	var buildingCode, createdBy sql.NullString
	var selectionsJSON, scoreJSON []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.BuildingType, &buildingCode, &selectionsJSON,
		&p.Status, &p.Revision, &createdBy, &p.ScoringError, &scoreJSON,
		&p.ScoredAt, &p.FinalizedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.BuildingCode = buildingCode.String
	p.CreatedBy = createdBy.String
	if selectionsJSON != nil {
		if err := json.Unmarshal(selectionsJSON, &p.Selections); err != nil {
			return nil, fmt.Errorf("decode project %s selections: %w", p.ID, err)
		}
	}
	if scoreJSON != nil {
		p.Score = &scoring.ProjectScoreResult{}
		if err := json.Unmarshal(scoreJSON, p.Score); err != nil {
			return nil, fmt.Errorf("decode project %s score: %w", p.ID, err)
		}
	}
	return p, nil
}

func scanProjects(rows pgx.Rows) ([]*scoring.Project, error) {
	var projects []*scoring.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func paginate(query string, args []interface{}, n, limit, offset int) (string, []interface{}) {
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, offset)
	}
	return query, args
}
