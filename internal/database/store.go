package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/errs"
	"papertrade/internal/models"
)

const pqUniqueViolation = "23505"

// Store is the Postgres-backed user and holdings store. Cash and holdings for
// one user always move inside a single transaction; there is no cross-user
// atomicity.
type Store struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Store {
	return &Store{db: db, log: log}
}

// CreateUser inserts a new account with the given starting cash.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (*models.User, error) {
	u := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         startingCash,
		Holdings:     []models.Holding{},
	}
	q := `INSERT INTO users (id, username, password_hash, cash, created_at)
	      VALUES (gen_random_uuid(), $1, $2, $3::numeric, now())
	      RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, q, username, passwordHash, startingCash.String()).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, errs.New(errs.KindValidation, "there is already a user with the given username")
		}
		return nil, errs.Wrap(errs.KindPersistence, err, "could not create user %s", username)
	}
	return &u, nil
}

// GetUserByID loads a user and all of their holdings.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT id, username, password_hash, cash, created_at FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.KindValidation, "no user found with id %s", id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, err, "load user %s", id)
	}
	if err := s.loadHoldings(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername loads a user by their login name, holdings included.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT id, username, password_hash, cash, created_at FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.KindValidation, "no user found with username %s", username)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, err, "load user %s", username)
	}
	if err := s.loadHoldings(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every account with holdings attached, in creation order.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, `SELECT id, username, password_hash, cash, created_at FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, err, "list users")
	}
	for i := range users {
		if err := s.loadHoldings(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdatePassword replaces the stored credential hash for username.
func (s *Store) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE username = $1`, username, passwordHash)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "update password for %s", username)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.KindPersistence, "failed to update user %s", username)
	}
	return nil
}

// PersistBuy writes the post-buy cash balance and upserts the holding in one
// transaction. A partial write (cash debited, holding missing) must be
// impossible.
func (s *Store) PersistBuy(ctx context.Context, userID string, cash decimal.Decimal, h *models.Holding) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "begin buy transaction")
	}
	defer tx.Rollback()

	if err := updateCash(ctx, tx, userID, cash); err != nil {
		return err
	}

	upsert := `INSERT INTO holdings (user_id, symbol, num_shares, weighted_avg_price, total_cost, first_purchased)
	           VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
	           ON CONFLICT (user_id, symbol) DO UPDATE SET
	               num_shares = $3::numeric,
	               weighted_avg_price = $4::numeric,
	               total_cost = $5::numeric`
	if _, err := tx.ExecContext(ctx, upsert, userID, h.Symbol,
		h.NumShares.String(), h.WeightedAvgPrice.String(), h.TotalCost.String(), h.FirstPurchased); err != nil {
		return errs.Wrap(errs.KindPersistence, err, "could not purchase stock")
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindPersistence, err, "commit buy")
	}
	return nil
}

// PersistSell writes the post-sell cash balance and either updates the
// remaining holding or, when remaining is nil, removes the row entirely.
func (s *Store) PersistSell(ctx context.Context, userID string, cash decimal.Decimal, symbol string, remaining *models.Holding) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "begin sell transaction")
	}
	defer tx.Rollback()

	if err := updateCash(ctx, tx, userID, cash); err != nil {
		return err
	}

	if remaining == nil {
		res, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE user_id = $1 AND symbol = $2`, userID, symbol)
		if err != nil {
			return errs.Wrap(errs.KindPersistence, err, "could not sell stock")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.New(errs.KindPersistence, "could not sell stock: no holding row for %s", symbol)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE holdings SET num_shares = $3::numeric, weighted_avg_price = $4::numeric, total_cost = $5::numeric
			 WHERE user_id = $1 AND symbol = $2`,
			userID, symbol, remaining.NumShares.String(), remaining.WeightedAvgPrice.String(), remaining.TotalCost.String())
		if err != nil {
			return errs.Wrap(errs.KindPersistence, err, "could not sell stock")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.New(errs.KindPersistence, "could not sell stock: no holding row for %s", symbol)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindPersistence, err, "commit sell")
	}
	return nil
}

func updateCash(ctx context.Context, tx *sqlx.Tx, userID string, cash decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET cash = $2::numeric WHERE id = $1`, userID, cash.String())
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "update cash for user %s", userID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.KindPersistence, "failed to update cash: no user row for %s", userID)
	}
	return nil
}

func (s *Store) loadHoldings(ctx context.Context, u *models.User) error {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT symbol, num_shares, weighted_avg_price, total_cost, first_purchased
		 FROM holdings WHERE user_id = $1 ORDER BY first_purchased ASC`, u.ID)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "load holdings for user %s", u.ID)
	}
	defer rows.Close()

	u.Holdings = []models.Holding{}
	for rows.Next() {
		var h models.Holding
		if err := rows.StructScan(&h); err != nil {
			s.log.Warnf("scan holding failed: %v", err)
			continue
		}
		u.Holdings = append(u.Holdings, h)
	}
	return rows.Err()
}
