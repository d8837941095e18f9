package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateAccount inserts the account and its empty profile in one transaction.
func (s *PostgresStore) CreateAccount(ctx context.Context, email, passwordHash string) (models.Account, error) {
	acc := models.Account{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO accounts (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		acc.ID, acc.Email, acc.PasswordHash,
	).Scan(&acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, ErrEmailTaken
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles (id) VALUES ($1)`, acc.ID); err != nil {
		return models.Account{}, fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Account{}, fmt.Errorf("commit: %w", err)
	}
	return acc, nil
}

func (s *PostgresStore) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	var acc models.Account
	err := s.db.GetContext(ctx, &acc,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, `SELECT id, points, last_login FROM profiles WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdatePoints(ctx context.Context, userID string, points int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET points = $2 WHERE id = $1`, userID, points)
	if err != nil {
		return fmt.Errorf("update points: %w", err)
	}
	return expectRow(res)
}

func (s *PostgresStore) StampLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET last_login = $2 WHERE id = $1`, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("stamp last login: %w", err)
	}
	return expectRow(res)
}

// IncrementTotalBottles calls the atomic SQL function and returns the new total.
func (s *PostgresStore) IncrementTotalBottles(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT increment_total_bottles()`); err != nil {
		return 0, fmt.Errorf("increment total bottles: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) AddActiveRecycler(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE community_stats SET active_recyclers = active_recyclers + 1 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("add active recycler: %w", err)
	}
	return nil
}

func (s *PostgresStore) CommunityStats(ctx context.Context) (models.CommunityStats, error) {
	var st models.CommunityStats
	err := s.db.GetContext(ctx, &st,
		`SELECT total_bottles_recycled, active_recyclers FROM community_stats WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CommunityStats{}, ErrNotFound
	}
	if err != nil {
		return models.CommunityStats{}, fmt.Errorf("get community stats: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) ResetCommunityStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE community_stats SET total_bottles_recycled = 0, active_recyclers = 0 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("reset community stats: %w", err)
	}
	return nil
}

const rewardColumns = `id, name, cost, icon, image_url, created_at`

func (s *PostgresStore) ListRewards(ctx context.Context) ([]models.Reward, error) {
	list := []models.Reward{}
	if err := s.db.SelectContext(ctx, &list, `SELECT `+rewardColumns+` FROM rewards ORDER BY cost ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) GetReward(ctx context.Context, id int64) (models.Reward, error) {
	var r models.Reward
	err := s.db.GetContext(ctx, &r, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id)
	return r, rewardErr(err)
}

func (s *PostgresStore) CreateReward(ctx context.Context, in models.RewardInput) (models.Reward, error) {
	var r models.Reward
	err := s.db.GetContext(ctx, &r,
		`INSERT INTO rewards (name, cost, icon) VALUES ($1, $2, $3) RETURNING `+rewardColumns,
		in.Name, in.Cost, in.Icon)
	return r, rewardErr(err)
}

func (s *PostgresStore) UpdateReward(ctx context.Context, id int64, in models.RewardInput) (models.Reward, error) {
	var r models.Reward
	err := s.db.GetContext(ctx, &r,
		`UPDATE rewards SET name = $2, cost = $3, icon = $4 WHERE id = $1 RETURNING `+rewardColumns,
		id, in.Name, in.Cost, in.Icon)
	return r, rewardErr(err)
}

func (s *PostgresStore) DeleteReward(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return expectRow(res)
}

func (s *PostgresStore) SetRewardImage(ctx context.Context, id int64, url string) (models.Reward, error) {
	var r models.Reward
	err := s.db.GetContext(ctx, &r,
		`UPDATE rewards SET image_url = $2 WHERE id = $1 RETURNING `+rewardColumns, id, url)
	return r, rewardErr(err)
}

func (s *PostgresStore) CountRewards(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM rewards`); err != nil {
		return 0, fmt.Errorf("count rewards: %w", err)
	}
	return n, nil
}

func rewardErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	default:
		return fmt.Errorf("rewards: %w", err)
	}
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
