package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

const userColumns = `telegram_id, display_name, phone, language, points, free_search_count,
       referral_count, is_premium, is_trial, trial_notified, joined_date, country,
       referred_by, created_at, updated_at`

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u       model.User
		lang    string
		country string
	)
	err := row.Scan(&u.TelegramID, &u.DisplayName, &u.Phone, &lang, &u.Points, &u.FreeSearchCount,
		&u.ReferralCount, &u.IsPremium, &u.IsTrial, &u.TrialNotified, &u.JoinedDate, &country,
		&u.ReferredBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Language, _ = model.ParseLanguage(lang)
	u.Country = model.Country(country)
	return &u, nil
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE telegram_id=$1;`
	return scanUser(pickRow(ctx, r.pool, tx, q, tgID))
}

// FindByTelegramIDForUpdate must run inside a transaction; on a bare pool the
// lock would be released as soon as the statement returns.
func (r *PostgresUserRepo) FindByTelegramIDForUpdate(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrInvalidExecContext
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE telegram_id=$1 FOR UPDATE;`
	return scanUser(pickRow(ctx, r.pool, tx, q, tgID))
}

// CreateDefault inserts the default record unless one exists, then returns
// whatever is stored. Two racing first contacts both read the same row.
func (r *PostgresUserRepo) CreateDefault(ctx context.Context, tx repository.Tx, tgID int64, displayName string, now time.Time) (*model.User, error) {
	u, err := model.NewUser(tgID, displayName, now)
	if err != nil {
		return nil, err
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO users (telegram_id, display_name, language, joined_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4, $4)
ON CONFLICT (telegram_id) DO NOTHING;`
	if _, err := ex.Exec(ctx, q, u.TelegramID, u.DisplayName, string(u.Language), u.JoinedDate); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.FindByTelegramID(ctx, tx, tgID)
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (
  telegram_id, display_name, phone, language, points, free_search_count,
  referral_count, is_premium, is_trial, trial_notified, joined_date, country,
  referred_by, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (telegram_id) DO UPDATE SET
  display_name=$2, phone=$3, language=$4, points=$5, free_search_count=$6,
  referral_count=$7, is_premium=$8, is_trial=$9, trial_notified=$10, joined_date=$11,
  country=$12, referred_by=$13, updated_at=$15;`
	_, err = ex.Exec(ctx, q,
		u.TelegramID, u.DisplayName, u.Phone, string(u.Language), u.Points, u.FreeSearchCount,
		u.ReferralCount, u.IsPremium, u.IsTrial, u.TrialNotified, u.JoinedDate, string(u.Country),
		u.ReferredBy, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user %d: %w", u.TelegramID, err)
	}
	return nil
}

// IncrementFreeSearch bumps the counter in one conditional statement so
// concurrent searches can never push it past limit. Registered users are frozen.
func (r *PostgresUserRepo) IncrementFreeSearch(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error) {
	const q = `
UPDATE users SET free_search_count = free_search_count + 1, updated_at = NOW()
 WHERE telegram_id=$1 AND phone IS NULL AND free_search_count < $2
RETURNING free_search_count;`
	var n int
	err := pickRow(ctx, r.pool, tx, q, tgID, limit).Scan(&n)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("increment free search: %w", err)
	}
	// nothing updated: tell missing, registered and exhausted apart
	u, ferr := r.FindByTelegramID(ctx, tx, tgID)
	if ferr != nil {
		return 0, ferr
	}
	if u.IsRegistered() {
		return 0, domain.ErrAlreadyRegistered
	}
	return 0, domain.ErrFreeLimitReached
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	var n int
	if err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountByState buckets users the way the stats gauge reports them. Trials past
// their period still count as trial until the user's next interaction expires them.
func (r *PostgresUserRepo) CountByState(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT CASE
         WHEN phone IS NULL THEN 'unregistered'
         WHEN is_premium    THEN 'premium'
         WHEN is_trial      THEN 'trial'
         ELSE 'expired'
       END AS state,
       COUNT(*)
  FROM users
 GROUP BY 1;`
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count by state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int, 4)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}
