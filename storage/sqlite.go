package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"jobfeed/models"
)

// sqliteDriver is go-sqlite3 with lower() replaced by a Unicode-aware
// version. The built-in only folds ASCII, so "ŠEF" would never match "šef".
const sqliteDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

// SQLiteStore is the default JobStore and, whatever the posting driver, the
// operational store: scrape runs, log lines, source counters and the command
// queue.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriver, dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS postings (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		title TEXT,
		company TEXT,
		location TEXT,
		description TEXT,
		salary_min REAL,
		salary_max REAL,
		seniority TEXT,
		contract_type TEXT,
		remote BOOLEAN,
		remote_type TEXT,
		category TEXT,
		source_site TEXT,
		skills_text TEXT,
		posted_at INTEGER,
		is_active BOOLEAN DEFAULT TRUE,
		scraped_at INTEGER,
		last_updated INTEGER,
		data JSON,
		UNIQUE(source_id, fingerprint)
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id TEXT PRIMARY KEY,
		source_id TEXT,
		status TEXT,
		started_at DATETIME,
		completed_at DATETIME,
		jobs_found INTEGER,
		jobs_inserted INTEGER,
		jobs_updated INTEGER,
		duplicates_skipped INTEGER,
		candidates_rejected INTEGER,
		retry_count INTEGER,
		max_retries INTEGER,
		errors JSON
	);

	CREATE TABLE IF NOT EXISTS scrape_passes (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		completed_at DATETIME,
		sources INTEGER
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		source_id TEXT
	);

	CREATE TABLE IF NOT EXISTS source_stats (
		source_id TEXT PRIMARY KEY,
		error_count INTEGER,
		success_rate REAL,
		attempts INTEGER,
		successes INTEGER,
		last_scraped DATETIME,
		last_successful_scrape DATETIME
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_postings_posted ON postings(is_active, posted_at DESC);
	CREATE INDEX IF NOT EXISTS idx_postings_scraped ON postings(scraped_at);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Postings
// =============================================================================

func (s *SQLiteStore) Upsert(ctx context.Context, postings []models.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO postings (id, source_id, fingerprint, title, company, location, description,
			salary_min, salary_max, seniority, contract_type, remote, remote_type, category,
			source_site, skills_text, posted_at, is_active, scraped_at, last_updated, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, fingerprint) DO UPDATE SET
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			description = excluded.description,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			seniority = excluded.seniority,
			contract_type = excluded.contract_type,
			remote = excluded.remote,
			remote_type = excluded.remote_type,
			category = excluded.category,
			source_site = excluded.source_site,
			skills_text = excluded.skills_text,
			posted_at = excluded.posted_at,
			is_active = excluded.is_active,
			last_updated = excluded.last_updated,
			data = excluded.data`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range postings {
		p := &postings[i]
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", p.Fingerprint, err)
		}
		salMin, salMax := salaryBounds(p)
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.SourceID, p.Fingerprint, p.Title, p.Company, p.Location, p.Description,
			salMin, salMax, p.Seniority, p.ContractType, p.Remote, p.RemoteType, p.Category,
			p.SourceSite, skillsText(p.Skills), p.PostedDate.UnixNano(), p.IsActive,
			p.ScrapedAt.UnixNano(), p.LastUpdated.UnixNano(), string(data)); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", p.SourceID, p.Fingerprint, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetByFingerprints(ctx context.Context, sourceID string, fps []string) (map[string]models.JobPosting, error) {
	out := make(map[string]models.JobPosting, len(fps))
	if len(fps) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(fps)+1)
	args = append(args, sourceID)
	for _, fp := range fps {
		args = append(args, fp)
	}
	query := fmt.Sprintf(`SELECT id, scraped_at, data FROM postings WHERE source_id = ? AND fingerprint IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?, ", len(fps)), ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	postings, err := scanPostingRows(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range postings {
		out[p.Fingerprint] = p
	}
	return out, nil
}

func (s *SQLiteStore) Query(ctx context.Context, f models.JobFilters) ([]models.JobPosting, int, error) {
	where, args := buildWhere(f, qmark)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM postings "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	offset, limit := pageBounds(f)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, scraped_at, data FROM postings "+where+" ORDER BY posted_at DESC, id ASC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	jobs, err := scanPostingRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *SQLiteStore) FacetCounts(ctx context.Context, f models.JobFilters) (models.FacetCounts, error) {
	fc := models.NewFacetCounts()
	where, args := buildWhere(f, qmark)

	for _, col := range facetColumns {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf("SELECT %s, COUNT(*) FROM postings %s GROUP BY %s", col, where, col), args...)
		if err != nil {
			return fc, fmt.Errorf("facet %s: %w", col, err)
		}
		for rows.Next() {
			var value sql.NullString
			var n int
			if err := rows.Scan(&value, &n); err != nil {
				rows.Close()
				return fc, err
			}
			addFacet(&fc, col, value.String, n)
		}
		if err := rows.Close(); err != nil {
			return fc, err
		}
	}
	return fc, nil
}

func (s *SQLiteStore) Active(ctx context.Context) ([]models.JobPosting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scraped_at, data FROM postings WHERE is_active = TRUE ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	return scanPostingRows(rows)
}

func scanPostingRows(rows *sql.Rows) ([]models.JobPosting, error) {
	defer rows.Close()

	postings := []models.JobPosting{}
	for rows.Next() {
		var id, data string
		var scrapedAt int64
		if err := rows.Scan(&id, &scrapedAt, &data); err != nil {
			return nil, err
		}
		p, err := decodePosting(id, time.Unix(0, scrapedAt).UTC(), []byte(data))
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// decodePosting restores a posting from its JSON document. The id and
// scraped_at columns win over the document, since a conflicting upsert keeps
// them while replacing data.
func decodePosting(id string, scrapedAt time.Time, data []byte) (models.JobPosting, error) {
	var p models.JobPosting
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode posting %s: %w", id, err)
	}
	p.ID = id
	if !p.ScrapedAt.Equal(scrapedAt) {
		p.ScrapedAt = scrapedAt
	}
	return p, nil
}

func salaryBounds(p *models.JobPosting) (any, any) {
	if p.Salary == nil {
		return nil, nil
	}
	return p.Salary.Min, p.Salary.Max
}

// =============================================================================
// Scrape runs and passes
// =============================================================================

func (s *SQLiteStore) SaveRun(job *models.ScrapeJob) error {
	errs, err := json.Marshal(job.Errors)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO scrape_runs (id, source_id, status, started_at, completed_at, jobs_found, jobs_inserted,
			jobs_updated, duplicates_skipped, candidates_rejected, retry_count, max_retries, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			jobs_found = excluded.jobs_found,
			jobs_inserted = excluded.jobs_inserted,
			jobs_updated = excluded.jobs_updated,
			duplicates_skipped = excluded.duplicates_skipped,
			candidates_rejected = excluded.candidates_rejected,
			retry_count = excluded.retry_count,
			errors = excluded.errors`,
		job.ID, job.SourceID, job.Status, job.StartedAt, job.CompletedAt, job.JobsFound, job.JobsInserted,
		job.JobsUpdated, job.DuplicatesSkipped, job.CandidatesRejected, job.RetryCount, job.MaxRetries, string(errs))
	return err
}

func (s *SQLiteStore) GetRun(id string) (*models.ScrapeJob, error) {
	row := s.db.QueryRow(`
		SELECT id, source_id, status, started_at, completed_at, jobs_found, jobs_inserted, jobs_updated,
			duplicates_skipped, candidates_rejected, retry_count, max_retries, errors
		FROM scrape_runs WHERE id = ?`, id)

	job, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) RecentRuns(limit int) ([]models.ScrapeJob, error) {
	rows, err := s.db.Query(`
		SELECT id, source_id, status, started_at, completed_at, jobs_found, jobs_inserted, jobs_updated,
			duplicates_skipped, candidates_rejected, retry_count, max_retries, errors
		FROM scrape_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeJob
	for rows.Next() {
		job, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *job)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	var errs sql.NullString
	if err := row.Scan(&job.ID, &job.SourceID, &job.Status, &job.StartedAt, &job.CompletedAt,
		&job.JobsFound, &job.JobsInserted, &job.JobsUpdated, &job.DuplicatesSkipped,
		&job.CandidatesRejected, &job.RetryCount, &job.MaxRetries, &errs); err != nil {
		return nil, err
	}
	if errs.Valid && errs.String != "" {
		if err := json.Unmarshal([]byte(errs.String), &job.Errors); err != nil {
			return nil, fmt.Errorf("decode errors of run %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

func (s *SQLiteStore) RecordPass(startedAt, completedAt time.Time, sources int) error {
	_, err := s.db.Exec(`INSERT INTO scrape_passes (started_at, completed_at, sources) VALUES (?, ?, ?)`,
		startedAt, completedAt, sources)
	return err
}

// LastPassTime returns the completion time of the latest pass, or nil.
func (s *SQLiteStore) LastPassTime() (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRow(`SELECT completed_at FROM scrape_passes ORDER BY completed_at DESC LIMIT 1`).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// =============================================================================
// Logs
// =============================================================================

func (s *SQLiteStore) Log(runID string, level models.LogLevel, message, sourceID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, source_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, sourceID)
	return err
}

func (s *SQLiteStore) RunLogs(runID string) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, source_id
		FROM scrape_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.SourceID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// Source stats
// =============================================================================

func (s *SQLiteStore) SaveSourceStats(st models.SourceStats) error {
	_, err := s.db.Exec(`
		INSERT INTO source_stats (source_id, error_count, success_rate, attempts, successes, last_scraped, last_successful_scrape)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			error_count = excluded.error_count,
			success_rate = excluded.success_rate,
			attempts = excluded.attempts,
			successes = excluded.successes,
			last_scraped = excluded.last_scraped,
			last_successful_scrape = excluded.last_successful_scrape`,
		st.SourceID, st.ErrorCount, st.SuccessRate, st.Attempts, st.Successes, st.LastScraped, st.LastSuccessfulScrape)
	return err
}

func (s *SQLiteStore) LoadSourceStats() ([]models.SourceStats, error) {
	rows, err := s.db.Query(`
		SELECT source_id, error_count, success_rate, attempts, successes, last_scraped, last_successful_scrape
		FROM source_stats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.SourceStats
	for rows.Next() {
		var st models.SourceStats
		if err := rows.Scan(&st.SourceID, &st.ErrorCount, &st.SuccessRate, &st.Attempts, &st.Successes,
			&st.LastScraped, &st.LastSuccessfulScrape); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) (int64, error) {
	var raw any
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return 0, err
		}
		raw = string(b)
	}
	result, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, raw, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
