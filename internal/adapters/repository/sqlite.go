package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/model"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/pkg/logger"
	"github.com/okian/rankpredictor/pkg/metrics"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS quiz_submissions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	total_score REAL NOT NULL,
	total_time  INTEGER NOT NULL,
	quiz_date   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS quiz_submissions_user ON quiz_submissions(user_id, quiz_date, id);
CREATE TABLE IF NOT EXISTS quiz_responses (
	submission_id      INTEGER NOT NULL REFERENCES quiz_submissions(id) ON DELETE CASCADE,
	position           INTEGER NOT NULL,
	question_id        INTEGER NOT NULL,
	selected_option_id INTEGER NOT NULL,
	correct_option_id  INTEGER NOT NULL,
	topic              TEXT NOT NULL,
	subtopic           TEXT NOT NULL DEFAULT '',
	difficulty         TEXT NOT NULL DEFAULT '',
	time_taken         INTEGER NOT NULL,
	PRIMARY KEY (submission_id, position)
);
CREATE TABLE IF NOT EXISTS rank_predictions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	submission_id  INTEGER NOT NULL DEFAULT 0,
	predicted_rank INTEGER NOT NULL,
	confidence     REAL NOT NULL,
	model_family   TEXT NOT NULL DEFAULT '',
	features_used  TEXT NOT NULL,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rank_predictions_user ON rank_predictions(user_id, created_at);
CREATE TABLE IF NOT EXISTS colleges (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL UNIQUE,
	location TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS college_cutoffs (
	college_id INTEGER NOT NULL REFERENCES colleges(id) ON DELETE CASCADE,
	category   TEXT NOT NULL,
	year       INTEGER NOT NULL,
	cutoff     INTEGER NOT NULL,
	PRIMARY KEY (college_id, category, year)
);
CREATE TABLE IF NOT EXISTS exam_results (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	year  INTEGER NOT NULL,
	score REAL NOT NULL,
	rank  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS exam_results_year ON exam_results(year);
`

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	now         func() time.Time
	logger      logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open creates a SQLiteStore connected to the database at dsn.
// It applies pragmas and creates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: defaultBusyTimeout,
		now:         time.Now,
		logger:      logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps the pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s.logger.Info(ctx, "store opened", logger.String("dsn", dsn))
	return s, nil
}

func (s *SQLiteStore) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// observe records latency and failures of one store operation.
func observe(op string, start time.Time, err *error) {
	metrics.RecordRepositoryQuery(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && !errors.Is(*err, ErrNotFound) {
		metrics.RecordRepositoryError(op)
	}
}

// CreateUser inserts u, assigning an id when empty.
func (s *SQLiteStore) CreateUser(ctx context.Context, u User) (_ User, err error) {
	defer observe("create_user", time.Now(), &err)

	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return User{}, fmt.Errorf("user name is required: %w", ErrInvalidInput)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = s.now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.CreatedAt.UnixMilli())
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// User returns the user with id.
func (s *SQLiteStore) User(ctx context.Context, id string) (_ User, err error) {
	defer observe("user", time.Now(), &err)

	var (
		u       User
		created int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

// Users lists all users ordered by creation.
func (s *SQLiteStore) Users(ctx context.Context) (_ []User, err error) {
	defer observe("users", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u       User
			created int64
		)
		if err = rows.Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

// SaveAttempt stores a validated attempt. A zero quiz date is stamped with the current time.
func (s *SQLiteStore) SaveAttempt(ctx context.Context, userID string, a model.QuizAttempt) (_ int64, err error) {
	defer observe("save_attempt", time.Now(), &err)

	if err = a.Validate(); err != nil {
		return 0, err
	}
	if a.QuizDate.IsZero() {
		a.QuizDate = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("select user: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO quiz_submissions (user_id, total_score, total_time, quiz_date) VALUES (?, ?, ?, ?)`,
		userID, a.TotalScore, a.TotalTime, a.QuizDate.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("submission id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO quiz_responses
		(submission_id, position, question_id, selected_option_id, correct_option_id, topic, subtopic, difficulty, time_taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare responses: %w", err)
	}
	defer stmt.Close()
	for i, r := range a.Responses {
		if _, err = stmt.ExecContext(ctx, id, i, r.QuestionID, r.SelectedOptionID, r.CorrectOptionID,
			r.Topic, r.Subtopic, r.Difficulty, r.TimeTaken); err != nil {
			return 0, fmt.Errorf("insert response %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// LatestAttempt returns the most recent submission of a user with its responses.
func (s *SQLiteStore) LatestAttempt(ctx context.Context, userID string) (_ Submission, err error) {
	defer observe("latest_attempt", time.Now(), &err)

	sub := Submission{UserID: userID}
	var date int64
	err = s.db.QueryRowContext(ctx, `SELECT id, total_score, total_time, quiz_date FROM quiz_submissions
		WHERE user_id = ? ORDER BY quiz_date DESC, id DESC LIMIT 1`, userID,
	).Scan(&sub.ID, &sub.Attempt.TotalScore, &sub.Attempt.TotalTime, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("attempts of user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("select submission: %w", err)
	}
	sub.Attempt.QuizDate = time.UnixMilli(date).UTC()

	rows, err := s.db.QueryContext(ctx, `SELECT question_id, selected_option_id, correct_option_id,
		topic, subtopic, difficulty, time_taken FROM quiz_responses WHERE submission_id = ? ORDER BY position`, sub.ID)
	if err != nil {
		return Submission{}, fmt.Errorf("select responses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r model.QuizResponse
		if err = rows.Scan(&r.QuestionID, &r.SelectedOptionID, &r.CorrectOptionID,
			&r.Topic, &r.Subtopic, &r.Difficulty, &r.TimeTaken); err != nil {
			return Submission{}, fmt.Errorf("scan response: %w", err)
		}
		sub.Attempt.Responses = append(sub.Attempt.Responses, r)
	}
	if err = rows.Err(); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// History returns up to limit submissions that precede submission before,
// oldest first. before <= 0 considers every submission; limit <= 0 is unbounded.
func (s *SQLiteStore) History(ctx context.Context, userID string, before int64, limit int) (_ []model.HistoricalRecord, err error) {
	defer observe("history", time.Now(), &err)

	if limit <= 0 {
		limit = -1
	}
	query := `SELECT total_score, total_time FROM quiz_submissions WHERE user_id = ?
		ORDER BY quiz_date DESC, id DESC LIMIT ?`
	args := []any{userID, limit}
	if before > 0 {
		query = `SELECT s.total_score, s.total_time FROM quiz_submissions s, quiz_submissions b
			WHERE s.user_id = ? AND b.id = ? AND s.id <> b.id
			AND (s.quiz_date < b.quiz_date OR (s.quiz_date = b.quiz_date AND s.id < b.id))
			ORDER BY s.quiz_date DESC, s.id DESC LIMIT ?`
		args = []any{userID, before, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var out []model.HistoricalRecord
	for rows.Next() {
		var h model.HistoricalRecord
		if err = rows.Scan(&h.TotalScore, &h.TotalTime); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SavePrediction stores p, assigning an id and timestamp.
func (s *SQLiteStore) SavePrediction(ctx context.Context, p PredictionRecord) (_ PredictionRecord, err error) {
	defer observe("save_prediction", time.Now(), &err)

	if p.UserID == "" {
		return PredictionRecord{}, fmt.Errorf("prediction without user: %w", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = s.now().UTC()
	if p.FeaturesUsed == nil {
		p.FeaturesUsed = model.FeatureVector{}
	}
	features, err := json.Marshal(p.FeaturesUsed)
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("encode features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO rank_predictions
		(id, user_id, submission_id, predicted_rank, confidence, model_family, features_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.SubmissionID, p.PredictedRank, p.Confidence, p.ModelFamily, string(features), p.CreatedAt.UnixMilli())
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("insert prediction: %w", err)
	}
	return p, nil
}

// Predictions lists the predictions of a user, newest first.
func (s *SQLiteStore) Predictions(ctx context.Context, userID string) (_ []PredictionRecord, err error) {
	defer observe("predictions", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, submission_id, predicted_rank, confidence,
		model_family, features_used, created_at FROM rank_predictions WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		var (
			p        PredictionRecord
			features string
			created  int64
		)
		if err = rows.Scan(&p.ID, &p.UserID, &p.SubmissionID, &p.PredictedRank, &p.Confidence,
			&p.ModelFamily, &features, &created); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err = json.Unmarshal([]byte(features), &p.FeaturesUsed); err != nil {
			return nil, fmt.Errorf("decode features of prediction %s: %w", p.ID, err)
		}
		p.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertCutoff inserts or replaces one cutoff row, creating the college on first use.
func (s *SQLiteStore) UpsertCutoff(ctx context.Context, c college.Cutoff) (err error) {
	defer observe("upsert_cutoff", time.Now(), &err)

	if strings.TrimSpace(c.College) == "" || c.Rank < 1 {
		return fmt.Errorf("cutoff needs a college and a positive rank: %w", ErrInvalidInput)
	}
	if c.Category == "" {
		c.Category = college.General
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var collegeID int64
	err = tx.QueryRowContext(ctx, `INSERT INTO colleges (name, location) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET location = CASE WHEN excluded.location = '' THEN location ELSE excluded.location END
		RETURNING id`, c.College, c.Location).Scan(&collegeID)
	if err != nil {
		return fmt.Errorf("upsert college: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO college_cutoffs (college_id, category, year, cutoff) VALUES (?, ?, ?, ?)
		ON CONFLICT(college_id, category, year) DO UPDATE SET cutoff = excluded.cutoff`,
		collegeID, string(c.Category), c.Year, c.Rank)
	if err != nil {
		return fmt.Errorf("upsert cutoff: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CutoffTable returns every stored cutoff.
func (s *SQLiteStore) CutoffTable(ctx context.Context) (_ *college.Table, err error) {
	defer observe("cutoff_table", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `SELECT c.name, c.location, k.category, k.year, k.cutoff
		FROM college_cutoffs k JOIN colleges c ON c.id = k.college_id ORDER BY c.name, k.category, k.year`)
	if err != nil {
		return nil, fmt.Errorf("select cutoffs: %w", err)
	}
	defer rows.Close()

	var cutoffs []college.Cutoff
	for rows.Next() {
		var (
			c   college.Cutoff
			cat string
		)
		if err = rows.Scan(&c.College, &c.Location, &cat, &c.Year, &c.Rank); err != nil {
			return nil, fmt.Errorf("scan cutoff: %w", err)
		}
		c.Category = college.Category(cat)
		cutoffs = append(cutoffs, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return college.NewTable(cutoffs), nil
}

// SaveExamResults appends prior-year results.
func (s *SQLiteStore) SaveExamResults(ctx context.Context, results []rankmodel.ExamResult) (err error) {
	defer observe("save_exam_results", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO exam_results (year, score, rank) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare exam results: %w", err)
	}
	defer stmt.Close()
	for _, r := range results {
		if _, err = stmt.ExecContext(ctx, r.Year, r.Score, r.Rank); err != nil {
			return fmt.Errorf("insert exam result: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PriorYearResults returns the results of year, or of the latest stored year when year is 0.
func (s *SQLiteStore) PriorYearResults(ctx context.Context, year int) (_ []rankmodel.ExamResult, err error) {
	defer observe("prior_year_results", time.Now(), &err)

	if year == 0 {
		var latest sql.NullInt64
		if err = s.db.QueryRowContext(ctx, `SELECT MAX(year) FROM exam_results`).Scan(&latest); err != nil {
			return nil, fmt.Errorf("select latest year: %w", err)
		}
		if !latest.Valid {
			return nil, fmt.Errorf("exam results: %w", ErrNotFound)
		}
		year = int(latest.Int64)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT year, score, rank FROM exam_results WHERE year = ? ORDER BY score DESC, id`, year)
	if err != nil {
		return nil, fmt.Errorf("select exam results: %w", err)
	}
	defer rows.Close()

	var out []rankmodel.ExamResult
	for rows.Next() {
		var r rankmodel.ExamResult
		if err = rows.Scan(&r.Year, &r.Score, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan exam result: %w", err)
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("exam results of %d: %w", year, ErrNotFound)
	}
	return out, nil
}
