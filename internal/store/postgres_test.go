package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/match-master/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

var profileColumns = []string{
	"profile_id", "name", "age", "job_title", "industry", "schedule",
	"ambition_level", "stress_level", "work_life_priority",
	"skills", "goals", "bio", "looking_for", "likes", "passes", "matches",
	"created_at",
}

func addProfileRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	return rows.AddRow(
		id, "Sarah Chen", 29, "Software Engineer", "Technology", "flexible",
		7, 5, "balanced",
		[]byte(`["Go"]`), []byte(`["startup"]`), "", "",
		[]byte(`["other"]`), []byte(`[]`), []byte(`[]`),
		time.Now(),
	)
}

func TestPostgresGetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM profiles WHERE profile_id = $1")).
			WithArgs("p1").
			WillReturnRows(addProfileRow(sqlmock.NewRows(profileColumns), "p1"))

		p, err := s.GetProfile(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Sarah Chen", p.Name)
		assert.Equal(t, []string{"Go"}, p.Skills)
		assert.True(t, p.HasLiked("other"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing returns ErrNotFound", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM profiles WHERE profile_id = $1")).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(profileColumns))

		_, err := s.GetProfile(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresSaveProfile(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := testProfile("p1")
	require.NoError(t, s.SaveProfile(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteProfile(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE profile_id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteProfile(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateMatch(t *testing.T) {
	ctx := context.Background()
	matchColumns := []string{
		"match_id", "pair_key", "profile1_id", "profile2_id",
		"compatibility_score", "reasons", "match_type",
		"compatibility_report", "conversation_starters", "created_at",
	}

	t.Run("fresh insert", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		m := models.NewMatch("a", "b", 75.0, []string{"reason"}, "General Match")
		created, fresh, err := s.CreateMatch(ctx, m)
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.Equal(t, m.ID, created.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pair conflict returns existing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM matches WHERE pair_key = $1")).
			WithArgs("a__b").
			WillReturnRows(sqlmock.NewRows(matchColumns).AddRow(
				"existing-id", "a__b", "a", "b",
				75.0, []byte(`["reason"]`), "General Match",
				"", []byte(`[]`), time.Now(),
			))

		m := models.NewMatch("b", "a", 75.0, []string{"reason"}, "General Match")
		existing, fresh, err := s.CreateMatch(ctx, m)
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, "existing-id", existing.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresGetMatchNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM matches WHERE match_id = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"match_id"}))

	_, err := s.GetMatch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
