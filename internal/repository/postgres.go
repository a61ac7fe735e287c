package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medsearch/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ErrSearchNotFound is returned when feedback references an unknown search
var ErrSearchNotFound = errors.New("search not found")

// Both similarity functions return rows with a similarity column and the
// nested services, facilities, hospitals, certifications and languages as jsonb.
const (
	matchHospitalsQuery = `
		SELECT to_jsonb(m) FROM match_hospitals(
			query_embedding   => $1::vector,
			match_threshold   => $2,
			match_count       => $3,
			filter_specialty  => $4,
			filter_country    => $5,
			filter_city       => $6,
			filter_is_halal   => $7,
			filter_min_rating => $8
		) AS m`

	matchDoctorsQuery = `
		SELECT to_jsonb(m) FROM match_doctors(
			query_embedding       => $1::vector,
			match_threshold       => $2,
			match_count           => $3,
			filter_specialty      => $4,
			filter_country        => $5,
			filter_city           => $6,
			filter_min_experience => $7,
			filter_is_halal       => $8,
			filter_min_rating     => $9
		) AS m`
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale pooler connections
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection pool
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// MatchHospitals runs match_hospitals. Nil filters are passed as NULL, which
// the function treats as no constraint.
func (r *PostgresRepository) MatchHospitals(ctx context.Context, embedding []float32, p model.MatchParams) ([]model.RawMatch, error) {
	f := p.Filters
	return r.match(ctx, "match_hospitals", matchHospitalsQuery,
		pgvector.NewVector(embedding),
		p.Threshold,
		p.Count,
		f.Specialty,
		f.Country,
		f.City,
		f.IsHalal,
		f.MinRating,
	)
}

// MatchDoctors runs match_doctors
func (r *PostgresRepository) MatchDoctors(ctx context.Context, embedding []float32, p model.MatchParams) ([]model.RawMatch, error) {
	f := p.Filters
	return r.match(ctx, "match_doctors", matchDoctorsQuery,
		pgvector.NewVector(embedding),
		p.Threshold,
		p.Count,
		f.Specialty,
		f.Country,
		f.City,
		f.MinExperience,
		f.IsHalal,
		f.MinRating,
	)
}

func (r *PostgresRepository) match(ctx context.Context, fn, query string, args ...interface{}) ([]model.RawMatch, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer rows.Close()

	matches := []model.RawMatch{}
	for rows.Next() {
		var m model.RawMatch
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", fn, err)
		}
		if m != nil {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return matches, nil
}

// LogSearch records a completed search
func (r *PostgresRepository) LogSearch(ctx context.Context, entry model.SearchLogEntry) error {
	filters, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	logQuery := `
		INSERT INTO search_logs (search_id, query, entity_type, filters, result_count, returned_ids, response_time_ms, intent_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, logQuery,
		entry.SearchID,
		entry.Query,
		string(entry.EntityType),
		string(filters),
		entry.ResultCount,
		pq.Array(entry.ReturnedIDs),
		entry.ResponseTimeMs,
		entry.IntentSource,
	)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback/action against a logged search
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID, resultID, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_result_id = $2, action = $3
		WHERE search_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, searchID, resultID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSearchNotFound, searchID)
	}
	return nil
}
