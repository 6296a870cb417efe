package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/truthschool/prepscore/internal/domain/model"
)

// GormStore persists aggregates in SQLite or PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenGorm connects to the given driver ("sqlite" or "postgres").
func OpenGorm(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; serialise through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormStore(db), nil
}

// NewGormStore wraps an open gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates every aggregate table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allRows()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// find loads one row by its primary key columns. found is false when no
// row matched.
func find(tx *gorm.DB, row interface{}, query string, args ...interface{}) (bool, error) {
	err := tx.Where(query, args...).Take(row).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

func upsert(tx *gorm.DB, row interface{}) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (s *GormStore) read(ctx context.Context, aggregate string, row interface{}, query string, args ...interface{}) error {
	defer observe("get", aggregate, time.Now())
	found, err := find(s.db.WithContext(ctx), row, query, args...)
	if err != nil {
		return fmt.Errorf("get %s: %w", aggregate, err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) write(ctx context.Context, aggregate string, fn func(tx *gorm.DB) error) error {
	defer observe("update", aggregate, time.Now())
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *GormStore) GetQuestion(ctx context.Context, id string) (*model.QuestionStats, error) {
	var row questionRow
	if err := s.read(ctx, aggQuestion, &row, "question_id = ?", id); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *GormStore) GetTest(ctx context.Context, id string) (*model.TestStats, error) {
	var row testRow
	if err := s.read(ctx, aggTest, &row, "test_id = ?", id); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *GormStore) GetChallenge(ctx context.Context, id string) (*model.ChallengeStats, error) {
	var row challengeRow
	if err := s.read(ctx, aggChallenge, &row, "challenge_id = ?", id); err != nil {
		return nil, err
	}
	return &model.ChallengeStats{
		ChallengeID:           row.ChallengeID,
		TotalSubmissions:      row.TotalSubmissions,
		SuccessfulSubmissions: row.SuccessfulSubmissions,
		UpdatedAt:             row.UpdatedAt,
	}, nil
}

func (s *GormStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var row submissionRow
	if err := s.read(ctx, aggSubmission, &row, "submission_id = ?", id); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *GormStore) GetSkill(ctx context.Context, key model.SkillKey) (*model.SkillProgress, error) {
	key = normalizeKey(key)
	var row skillRow
	if err := s.read(ctx, aggSkill, &row, "user_id = ? AND skill = ?", key.UserID, key.Skill); err != nil {
		return nil, err
	}
	return row.toModel()
}

func (s *GormStore) GetFeedback(ctx context.Context, id string) (*model.Feedback, error) {
	var row feedbackRow
	if err := s.read(ctx, aggFeedback, &row, "feedback_id = ?", id); err != nil {
		return nil, err
	}
	return row.toModel()
}

func (s *GormStore) GetInterview(ctx context.Context, id string) (*model.InterviewStats, error) {
	var row interviewRow
	if err := s.read(ctx, aggInterview, &row, "session_id = ?", id); err != nil {
		return nil, err
	}
	return &model.InterviewStats{
		SessionID:          row.SessionID,
		UserID:             row.UserID,
		QuestionsEvaluated: row.QuestionsEvaluated,
		AverageScore:       row.AverageScore,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

func (s *GormStore) GetPlan(ctx context.Context, id string) (*model.PlanProgress, error) {
	var row planRow
	if err := s.read(ctx, aggPlan, &row, "plan_id = ?", id); err != nil {
		return nil, err
	}
	return row.toModel()
}

func (s *GormStore) UpdateQuestion(ctx context.Context, id string, fn func(*model.QuestionStats) error) error {
	return s.write(ctx, aggQuestion, func(tx *gorm.DB) error {
		row := questionRow{QuestionID: id}
		if _, err := find(tx, &row, "question_id = ?", id); err != nil {
			return err
		}
		q := row.toModel()
		if err := fn(q); err != nil {
			return err
		}
		return upsert(tx, questionRowOf(q))
	})
}

func (s *GormStore) UpdateTest(ctx context.Context, id string, fn func(*model.TestStats) error) error {
	return s.write(ctx, aggTest, func(tx *gorm.DB) error {
		row := testRow{TestID: id}
		if _, err := find(tx, &row, "test_id = ?", id); err != nil {
			return err
		}
		t := row.toModel()
		if err := fn(t); err != nil {
			return err
		}
		return upsert(tx, testRowOf(t))
	})
}

func (s *GormStore) UpdateSubmission(ctx context.Context, challengeID, submissionID string,
	fn func(c *model.ChallengeStats, sub *model.Submission, found bool) error,
) error {
	return s.write(ctx, aggSubmission, func(tx *gorm.DB) error {
		crow := challengeRow{ChallengeID: challengeID}
		if _, err := find(tx, &crow, "challenge_id = ?", challengeID); err != nil {
			return err
		}
		srow := submissionRow{SubmissionID: submissionID, ChallengeID: challengeID}
		found, err := find(tx, &srow, "submission_id = ?", submissionID)
		if err != nil {
			return err
		}

		c := &model.ChallengeStats{
			ChallengeID:           crow.ChallengeID,
			TotalSubmissions:      crow.TotalSubmissions,
			SuccessfulSubmissions: crow.SuccessfulSubmissions,
			UpdatedAt:             crow.UpdatedAt,
		}
		sub := srow.toModel()
		if err := fn(c, sub, found); err != nil {
			return err
		}

		if err := upsert(tx, &challengeRow{
			ChallengeID:           c.ChallengeID,
			TotalSubmissions:      c.TotalSubmissions,
			SuccessfulSubmissions: c.SuccessfulSubmissions,
			UpdatedAt:             c.UpdatedAt,
		}); err != nil {
			return err
		}
		return upsert(tx, submissionRowOf(sub))
	})
}

func (s *GormStore) UpdateSkill(ctx context.Context, key model.SkillKey,
	fn func(p *model.SkillProgress) (*model.SkillProgress, error),
) error {
	key = normalizeKey(key)
	return s.write(ctx, aggSkill, func(tx *gorm.DB) error {
		var row skillRow
		found, err := find(tx, &row, "user_id = ? AND skill = ?", key.UserID, key.Skill)
		if err != nil {
			return err
		}
		var cur *model.SkillProgress
		if found {
			if cur, err = row.toModel(); err != nil {
				return err
			}
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return ErrNoChange
		}
		next.UserID, next.Skill = key.UserID, key.Skill
		out, err := skillRowOf(next)
		if err != nil {
			return err
		}
		return upsert(tx, out)
	})
}

func (s *GormStore) UpdateFeedback(ctx context.Context, id string, fn func(*model.Feedback) error) error {
	return s.write(ctx, aggFeedback, func(tx *gorm.DB) error {
		row := feedbackRow{FeedbackID: id}
		if _, err := find(tx, &row, "feedback_id = ?", id); err != nil {
			return err
		}
		f, err := row.toModel()
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
		out, err := feedbackRowOf(f)
		if err != nil {
			return err
		}
		return upsert(tx, out)
	})
}

func (s *GormStore) UpdateInterview(ctx context.Context, id string, fn func(*model.InterviewStats) error) error {
	return s.write(ctx, aggInterview, func(tx *gorm.DB) error {
		row := interviewRow{SessionID: id}
		if _, err := find(tx, &row, "session_id = ?", id); err != nil {
			return err
		}
		st := &model.InterviewStats{
			SessionID:          row.SessionID,
			UserID:             row.UserID,
			QuestionsEvaluated: row.QuestionsEvaluated,
			AverageScore:       row.AverageScore,
			UpdatedAt:          row.UpdatedAt,
		}
		if err := fn(st); err != nil {
			return err
		}
		return upsert(tx, &interviewRow{
			SessionID:          st.SessionID,
			UserID:             st.UserID,
			QuestionsEvaluated: st.QuestionsEvaluated,
			AverageScore:       st.AverageScore,
			UpdatedAt:          st.UpdatedAt,
		})
	})
}

func (s *GormStore) UpdatePlan(ctx context.Context, id string, fn func(*model.PlanProgress) error) error {
	return s.write(ctx, aggPlan, func(tx *gorm.DB) error {
		row := planRow{PlanID: id}
		if _, err := find(tx, &row, "plan_id = ?", id); err != nil {
			return err
		}
		p, err := row.toModel()
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		out, err := planRowOf(p)
		if err != nil {
			return err
		}
		return upsert(tx, out)
	})
}

// Counts returns the number of stored aggregates by kind.
func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	db := s.db.WithContext(ctx)
	var c Counts
	targets := []struct {
		row interface{}
		n   *int64
	}{
		{&questionRow{}, &c.Questions},
		{&testRow{}, &c.Tests},
		{&challengeRow{}, &c.Challenges},
		{&submissionRow{}, &c.Submissions},
		{&skillRow{}, &c.Skills},
		{&feedbackRow{}, &c.Feedback},
		{&interviewRow{}, &c.Interviews},
		{&planRow{}, &c.Plans},
	}
	for _, t := range targets {
		if err := db.Model(t.row).Count(t.n).Error; err != nil {
			return Counts{}, fmt.Errorf("count: %w", err)
		}
	}
	return c, nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
