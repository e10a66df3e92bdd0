package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "github.com/lib/pq"

	"github.com/illegalcall/match-master/internal/models"
)

// PostgresStore implements Store on PostgreSQL. The unique index on the
// canonical pair key enforces at-most-one match per unordered pair at the
// database level, so the guarantee holds across processes without any
// in-memory locking.
type PostgresStore struct {
	db *sqlx.DB
}

const profilesSchema = `CREATE TABLE IF NOT EXISTS profiles (
	profile_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	age INT NOT NULL,
	job_title TEXT NOT NULL,
	industry TEXT NOT NULL,
	schedule TEXT NOT NULL DEFAULT '',
	ambition_level INT NOT NULL,
	stress_level INT NOT NULL,
	work_life_priority TEXT NOT NULL,
	skills JSONB NOT NULL DEFAULT '[]',
	goals JSONB NOT NULL DEFAULT '[]',
	bio TEXT NOT NULL DEFAULT '',
	looking_for TEXT NOT NULL DEFAULT '',
	likes JSONB NOT NULL DEFAULT '[]',
	passes JSONB NOT NULL DEFAULT '[]',
	matches JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const matchesSchema = `CREATE TABLE IF NOT EXISTS matches (
	match_id TEXT PRIMARY KEY,
	pair_key TEXT NOT NULL UNIQUE,
	profile1_id TEXT NOT NULL,
	profile2_id TEXT NOT NULL,
	compatibility_score DOUBLE PRECISION NOT NULL,
	reasons JSONB NOT NULL DEFAULT '[]',
	match_type TEXT NOT NULL,
	compatibility_report TEXT NOT NULL DEFAULT '',
	conversation_starters JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS matches_profile1_idx ON matches (profile1_id);
CREATE INDEX IF NOT EXISTS matches_profile2_idx ON matches (profile2_id);`

// NewPostgresStore connects and ensures the schema exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection without running
// migrations. Used by tests.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) migrate() error {
	for _, schema := range []string{profilesSchema, matchesSchema} {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

type profileRow struct {
	ID               string         `db:"profile_id"`
	Name             string         `db:"name"`
	Age              int            `db:"age"`
	JobTitle         string         `db:"job_title"`
	Industry         string         `db:"industry"`
	Schedule         string         `db:"schedule"`
	AmbitionLevel    int            `db:"ambition_level"`
	StressLevel      int            `db:"stress_level"`
	WorkLifePriority string         `db:"work_life_priority"`
	Skills           types.JSONText `db:"skills"`
	Goals            types.JSONText `db:"goals"`
	Bio              string         `db:"bio"`
	LookingFor       string         `db:"looking_for"`
	Likes            types.JSONText `db:"likes"`
	Passes           types.JSONText `db:"passes"`
	Matches          types.JSONText `db:"matches"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r *profileRow) toModel() (*models.Profile, error) {
	p := &models.Profile{
		ID:               r.ID,
		Name:             r.Name,
		Age:              r.Age,
		JobTitle:         r.JobTitle,
		Industry:         r.Industry,
		Schedule:         r.Schedule,
		AmbitionLevel:    r.AmbitionLevel,
		StressLevel:      r.StressLevel,
		WorkLifePriority: r.WorkLifePriority,
		Bio:              r.Bio,
		LookingFor:       r.LookingFor,
		CreatedAt:        r.CreatedAt,
	}
	for _, field := range []struct {
		raw  types.JSONText
		dest *[]string
	}{
		{r.Skills, &p.Skills},
		{r.Goals, &p.Goals},
		{r.Likes, &p.Likes},
		{r.Passes, &p.Passes},
		{r.Matches, &p.Matches},
	} {
		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return nil, storageErr("decode profile", err)
		}
	}
	return p, nil
}

func jsonColumn(v []string) types.JSONText {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return types.JSONText(data)
}

const upsertProfile = `INSERT INTO profiles (
	profile_id, name, age, job_title, industry, schedule,
	ambition_level, stress_level, work_life_priority,
	skills, goals, bio, looking_for, likes, passes, matches, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (profile_id) DO UPDATE SET
	name = EXCLUDED.name, age = EXCLUDED.age, job_title = EXCLUDED.job_title,
	industry = EXCLUDED.industry, schedule = EXCLUDED.schedule,
	ambition_level = EXCLUDED.ambition_level, stress_level = EXCLUDED.stress_level,
	work_life_priority = EXCLUDED.work_life_priority,
	skills = EXCLUDED.skills, goals = EXCLUDED.goals,
	bio = EXCLUDED.bio, looking_for = EXCLUDED.looking_for,
	likes = EXCLUDED.likes, passes = EXCLUDED.passes, matches = EXCLUDED.matches`

func profileArgs(p *models.Profile) []any {
	return []any{
		p.ID, p.Name, p.Age, p.JobTitle, p.Industry, p.Schedule,
		p.AmbitionLevel, p.StressLevel, p.WorkLifePriority,
		jsonColumn(p.Skills), jsonColumn(p.Goals), p.Bio, p.LookingFor,
		jsonColumn(p.Likes), jsonColumn(p.Passes), jsonColumn(p.Matches), p.CreatedAt,
	}
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	if _, err := s.db.ExecContext(ctx, upsertProfile, profileArgs(p)...); err != nil {
		return storageErr("save profile", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM profiles WHERE profile_id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get profile", err)
	}
	return row.toModel()
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM profiles"); err != nil {
		return nil, storageErr("list profiles", err)
	}
	profiles := make([]*models.Profile, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE profile_id = $1", id); err != nil {
		return storageErr("delete profile", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, mutate func(*models.Profile) error) (*models.Profile, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("update profile", err)
	}
	defer tx.Rollback()

	var row profileRow
	err = tx.GetContext(ctx, &row, "SELECT * FROM profiles WHERE profile_id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("update profile", err)
	}

	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, upsertProfile, profileArgs(p)...); err != nil {
		return nil, storageErr("update profile", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("update profile", err)
	}
	return p, nil
}

type matchRow struct {
	ID                   string         `db:"match_id"`
	PairKey              string         `db:"pair_key"`
	Profile1ID           string         `db:"profile1_id"`
	Profile2ID           string         `db:"profile2_id"`
	CompatibilityScore   float64        `db:"compatibility_score"`
	Reasons              types.JSONText `db:"reasons"`
	MatchType            string         `db:"match_type"`
	CompatibilityReport  string         `db:"compatibility_report"`
	ConversationStarters types.JSONText `db:"conversation_starters"`
	CreatedAt            time.Time      `db:"created_at"`
}

func (r *matchRow) toModel() (*models.Match, error) {
	m := &models.Match{
		ID:                  r.ID,
		Profile1ID:          r.Profile1ID,
		Profile2ID:          r.Profile2ID,
		CompatibilityScore:  r.CompatibilityScore,
		MatchType:           r.MatchType,
		CompatibilityReport: r.CompatibilityReport,
		CreatedAt:           r.CreatedAt,
	}
	if err := json.Unmarshal(r.Reasons, &m.Reasons); err != nil {
		return nil, storageErr("decode match", err)
	}
	if err := json.Unmarshal(r.ConversationStarters, &m.ConversationStarters); err != nil {
		return nil, storageErr("decode match", err)
	}
	return m, nil
}

const insertMatch = `INSERT INTO matches (
	match_id, pair_key, profile1_id, profile2_id, compatibility_score,
	reasons, match_type, compatibility_report, conversation_starters, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (pair_key) DO NOTHING`

const updateMatchQuery = `UPDATE matches SET
	compatibility_report = $2, conversation_starters = $3
WHERE match_id = $1`

func (s *PostgresStore) CreateMatch(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	pairKey := models.PairKey(m.Profile1ID, m.Profile2ID)

	res, err := s.db.ExecContext(ctx, insertMatch,
		m.ID, pairKey, m.Profile1ID, m.Profile2ID, m.CompatibilityScore,
		jsonColumn(m.Reasons), m.MatchType, m.CompatibilityReport,
		jsonColumn(m.ConversationStarters), m.CreatedAt,
	)
	if err != nil {
		return nil, false, storageErr("create match", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		return m, true, nil
	}

	// Pair already claimed; hand back the existing match.
	var row matchRow
	err = s.db.GetContext(ctx, &row, "SELECT * FROM matches WHERE pair_key = $1", pairKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, storageErr("create match", fmt.Errorf("pair %s claimed but match row missing", pairKey))
	}
	if err != nil {
		return nil, false, storageErr("create match", err)
	}
	existing, err := row.toModel()
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStore) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var row matchRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM matches WHERE match_id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get match", err)
	}
	return row.toModel()
}

func (s *PostgresStore) ListMatches(ctx context.Context) ([]*models.Match, error) {
	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM matches"); err != nil {
		return nil, storageErr("list matches", err)
	}
	matches := make([]*models.Match, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *PostgresStore) MatchesForProfile(ctx context.Context, profileID string) ([]*models.Match, error) {
	var rows []matchRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM matches WHERE profile1_id = $1 OR profile2_id = $1", profileID)
	if err != nil {
		return nil, storageErr("matches for profile", err)
	}
	matches := make([]*models.Match, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *PostgresStore) UpdateMatch(ctx context.Context, id string, mutate func(*models.Match) error) (*models.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("update match", err)
	}
	defer tx.Rollback()

	var row matchRow
	err = tx.GetContext(ctx, &row, "SELECT * FROM matches WHERE match_id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("update match", err)
	}

	m, err := row.toModel()
	if err != nil {
		return nil, err
	}
	if err := mutate(m); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, updateMatchQuery,
		m.ID, m.CompatibilityReport, jsonColumn(m.ConversationStarters)); err != nil {
		return nil, storageErr("update match", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("update match", err)
	}
	return m, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
