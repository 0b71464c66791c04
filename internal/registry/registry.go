package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iurnickita/affiliatemart/internal/model"
	"github.com/iurnickita/affiliatemart/internal/registry/config"
)

// Store is the affiliate registry: the source of truth for registered referrer codes.
type Store interface {
	ListActiveAffiliates(ctx context.Context) ([]model.AffiliateAccount, error)
	FindByReferrerCode(ctx context.Context, code string) (model.AffiliateAccount, error)
	Upsert(ctx context.Context, account model.AffiliateAccount) error
	UpdateCommissionRate(ctx context.Context, code string, rate decimal.Decimal) error
	Deactivate(ctx context.Context, code string) error
	Close() error
}

var (
	ErrNotFound      = errors.New("affiliate not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateIncorrect = errors.New("commission rate is incorrect")
	ErrCodeIncorrect = errors.New("referrer code is incorrect")
	ErrStatusUnknown = errors.New("unknown affiliate status")
)

const pgUniqueViolation = "23505"

type store struct {
	database *sqlx.DB
}

func NewStore(cfg config.Config) (Store, error) {
	db, err := sqlx.Connect("pgx", cfg.DBDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	// Таблица партнёров.
	// Записи не удаляются: при отключении меняется статус
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS affiliates (" +
			" referrer_code VARCHAR (64) PRIMARY KEY," +
			" username VARCHAR (64) NOT NULL DEFAULT ''," +
			" name VARCHAR (256) NOT NULL DEFAULT ''," +
			" email VARCHAR (256) UNIQUE," +
			" commission_rate NUMERIC (5, 2) NOT NULL DEFAULT 0," +
			" status VARCHAR (10) NOT NULL DEFAULT 'active'," +
			" created_at TIMESTAMP NOT NULL DEFAULT NOW()" +
			" );")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &store{database: db}, nil
}

const selectAffiliate = "SELECT referrer_code, username, name, COALESCE(email, '') AS email," +
	" commission_rate, status, created_at FROM affiliates"

func (store *store) ListActiveAffiliates(ctx context.Context) ([]model.AffiliateAccount, error) {
	var accounts []model.AffiliateAccount
	err := store.database.SelectContext(ctx, &accounts,
		selectAffiliate+
			" WHERE status = $1"+
			" ORDER BY referrer_code",
		model.AffiliateStatusActive)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (store *store) FindByReferrerCode(ctx context.Context, code string) (model.AffiliateAccount, error) {
	var account model.AffiliateAccount
	err := store.database.GetContext(ctx, &account,
		selectAffiliate+" WHERE referrer_code = $1",
		model.NormalizeReferrerCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AffiliateAccount{}, ErrNotFound
		}
		return model.AffiliateAccount{}, err
	}
	return account, nil
}

// Upsert registers an affiliate or updates its profile and rate.
func (store *store) Upsert(ctx context.Context, account model.AffiliateAccount) error {
	account, err := normalizeAccount(account)
	if err != nil {
		return err
	}

	var email sql.NullString
	if account.Email != "" {
		email = sql.NullString{String: account.Email, Valid: true}
	}

	_, err = store.database.ExecContext(ctx,
		"INSERT INTO affiliates (referrer_code, username, name, email, commission_rate, status, created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)"+
			" ON CONFLICT (referrer_code) DO UPDATE SET"+
			"   username = EXCLUDED.username,"+
			"   name = EXCLUDED.name,"+
			"   email = EXCLUDED.email,"+
			"   commission_rate = EXCLUDED.commission_rate,"+
			"   status = EXCLUDED.status",
		account.ReferrerCode,
		account.Username,
		account.Name,
		email,
		account.CommissionRate,
		account.Status,
		account.CreatedAt)
	if err != nil {
		// Проверка: e-mail занят другим партнёром
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (store *store) UpdateCommissionRate(ctx context.Context, code string, rate decimal.Decimal) error {
	if !validRate(rate) {
		return ErrRateIncorrect
	}
	res, err := store.database.ExecContext(ctx,
		"UPDATE affiliates SET commission_rate = $1 WHERE referrer_code = $2",
		rate,
		model.NormalizeReferrerCode(code))
	if err != nil {
		return err
	}
	return affected(res)
}

func (store *store) Deactivate(ctx context.Context, code string) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE affiliates SET status = $1 WHERE referrer_code = $2",
		model.AffiliateStatusInactive,
		model.NormalizeReferrerCode(code))
	if err != nil {
		return err
	}
	return affected(res)
}

func (store *store) Close() error {
	return store.database.Close()
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(100))
}

func normalizeAccount(account model.AffiliateAccount) (model.AffiliateAccount, error) {
	account.ReferrerCode = model.NormalizeReferrerCode(account.ReferrerCode)
	if account.ReferrerCode == "" {
		return account, ErrCodeIncorrect
	}
	account.Username = model.NormalizeReferrerCode(account.Username)
	if !validRate(account.CommissionRate) {
		return account, ErrRateIncorrect
	}
	switch account.Status {
	case "":
		account.Status = model.AffiliateStatusActive
	case model.AffiliateStatusActive, model.AffiliateStatusInactive:
	default:
		return account, ErrStatusUnknown
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	return account, nil
}
