package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobfeed/models"
)

// PostgresStore keeps postings in Postgres. The unique (source_id,
// fingerprint) constraint makes concurrent upserts of the same listing safe
// across processes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS postings (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			title TEXT,
			company TEXT,
			location TEXT,
			description TEXT,
			salary_min DOUBLE PRECISION,
			salary_max DOUBLE PRECISION,
			seniority TEXT,
			contract_type TEXT,
			remote BOOLEAN,
			remote_type TEXT,
			category TEXT,
			source_site TEXT,
			skills_text TEXT,
			posted_at TIMESTAMPTZ,
			is_active BOOLEAN DEFAULT TRUE,
			scraped_at TIMESTAMPTZ,
			last_updated TIMESTAMPTZ,
			data JSONB,
			UNIQUE (source_id, fingerprint)
		);
		CREATE INDEX IF NOT EXISTS idx_postings_posted ON postings (is_active, posted_at DESC);
		CREATE INDEX IF NOT EXISTS idx_postings_scraped ON postings (scraped_at);
	`)
	return err
}

// =============================================================================
// Postings
// =============================================================================

const upsertPostingSQL = `
	INSERT INTO postings (
		id, source_id, fingerprint, title, company, location, description,
		salary_min, salary_max, seniority, contract_type, remote, remote_type, category,
		source_site, skills_text, posted_at, is_active, scraped_at, last_updated, data
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
	)
	ON CONFLICT (source_id, fingerprint) DO UPDATE SET
		title = EXCLUDED.title,
		company = EXCLUDED.company,
		location = EXCLUDED.location,
		description = EXCLUDED.description,
		salary_min = EXCLUDED.salary_min,
		salary_max = EXCLUDED.salary_max,
		seniority = EXCLUDED.seniority,
		contract_type = EXCLUDED.contract_type,
		remote = EXCLUDED.remote,
		remote_type = EXCLUDED.remote_type,
		category = EXCLUDED.category,
		source_site = EXCLUDED.source_site,
		skills_text = EXCLUDED.skills_text,
		posted_at = EXCLUDED.posted_at,
		is_active = EXCLUDED.is_active,
		last_updated = EXCLUDED.last_updated,
		data = EXCLUDED.data`

func (s *PostgresStore) Upsert(ctx context.Context, postings []models.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range postings {
		p := &postings[i]
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", p.Fingerprint, err)
		}
		salMin, salMax := salaryBounds(p)
		batch.Queue(upsertPostingSQL,
			p.ID, p.SourceID, p.Fingerprint, p.Title, p.Company, p.Location, p.Description,
			salMin, salMax, string(p.Seniority), string(p.ContractType), p.Remote, string(p.RemoteType),
			string(p.Category), p.SourceSite, skillsText(p.Skills), p.PostedDate, p.IsActive,
			p.ScrapedAt, p.LastUpdated, data)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range postings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", postings[i].SourceID, postings[i].Fingerprint, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetByFingerprints(ctx context.Context, sourceID string, fps []string) (map[string]models.JobPosting, error) {
	out := make(map[string]models.JobPosting, len(fps))
	if len(fps) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, scraped_at, data FROM postings WHERE source_id = $1 AND fingerprint = ANY($2)`,
		sourceID, fps)
	if err != nil {
		return nil, err
	}
	postings, err := collectPostings(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range postings {
		out[p.Fingerprint] = p
	}
	return out, nil
}

func (s *PostgresStore) Query(ctx context.Context, f models.JobFilters) ([]models.JobPosting, int, error) {
	where, args := buildWhere(f, dollar)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM postings "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	offset, limit := pageBounds(f)
	n := len(args)
	query := fmt.Sprintf("SELECT id, scraped_at, data FROM postings %s ORDER BY posted_at DESC, id ASC LIMIT $%d OFFSET $%d",
		where, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	jobs, err := collectPostings(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *PostgresStore) FacetCounts(ctx context.Context, f models.JobFilters) (models.FacetCounts, error) {
	fc := models.NewFacetCounts()
	where, args := buildWhere(f, dollar)

	for _, col := range facetColumns {
		rows, err := s.pool.Query(ctx,
			fmt.Sprintf("SELECT COALESCE(%s, ''), COUNT(*) FROM postings %s GROUP BY 1", col, where), args...)
		if err != nil {
			return fc, fmt.Errorf("facet %s: %w", col, err)
		}
		for rows.Next() {
			var value string
			var n int
			if err := rows.Scan(&value, &n); err != nil {
				rows.Close()
				return fc, err
			}
			addFacet(&fc, col, value, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fc, err
		}
	}
	return fc, nil
}

func (s *PostgresStore) Active(ctx context.Context) ([]models.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scraped_at, data FROM postings WHERE is_active = TRUE ORDER BY scraped_at, id`)
	if err != nil {
		return nil, err
	}
	return collectPostings(rows)
}

// GetPosting returns one posting by id, or nil if there is none.
func (s *PostgresStore) GetPosting(ctx context.Context, id string) (*models.JobPosting, error) {
	var scrapedAt time.Time
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT id, scraped_at, data FROM postings WHERE id = $1`, id).
		Scan(&id, &scrapedAt, &data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := decodePosting(id, scrapedAt, data)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPostings(rows pgx.Rows) ([]models.JobPosting, error) {
	defer rows.Close()

	postings := []models.JobPosting{}
	for rows.Next() {
		var id string
		var scrapedAt time.Time
		var data []byte
		if err := rows.Scan(&id, &scrapedAt, &data); err != nil {
			return nil, err
		}
		p, err := decodePosting(id, scrapedAt, data)
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}
