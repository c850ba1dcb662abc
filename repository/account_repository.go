package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"wagerledger/address"
	"wagerledger/database"
	"wagerledger/models"
	"wagerledger/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// queryable is satisfied by both the pool and a transaction
type queryable interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements the AccountRepository interface on PostgreSQL
type AccountRepository struct {
	q       queryable
	locking bool
	onWrite func(address.Address)
}

// NewAccountRepository creates a repository that reads outside any transaction
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a repository bound to a transaction.
// Rows read through it are locked until the transaction ends.
func newAccountRepositoryWithTx(tx queryable, onWrite func(address.Address)) *AccountRepository {
	return &AccountRepository{q: tx, locking: true, onWrite: onWrite}
}

const accountColumns = `address, owner, kind, lamports, data, created_at, updated_at`

// Get retrieves an account by address
func (r *AccountRepository) Get(ctx context.Context, addr address.Address) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1`
	if r.locking {
		query += ` FOR UPDATE`
	}

	account, err := scanAccount(r.q.QueryRow(ctx, query, addr.Bytes()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", addr, err)
	}

	return account, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	lamports, err := toBigint(account.Lamports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (address, owner, kind, lamports, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		account.Address.Bytes(),
		account.Owner.Bytes(),
		int16(account.Kind),
		lamports,
		dataOrEmpty(account.Data),
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return service.ErrAlreadyExists.WithMessage("account %s already exists", account.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Address, err)
	}

	r.written(account.Address)
	return nil
}

// Update overwrites the lamports and data of an existing account
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	lamports, err := toBigint(account.Lamports)
	if err != nil {
		return err
	}

	query := `
		UPDATE accounts
		SET lamports = $1, data = $2, updated_at = NOW()
		WHERE address = $3
		RETURNING updated_at
	`

	err = r.q.QueryRow(ctx, query, lamports, dataOrEmpty(account.Data), account.Address.Bytes()).
		Scan(&account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("account %s not found", account.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", account.Address, err)
	}

	r.written(account.Address)
	return nil
}

// Delete removes an account
func (r *AccountRepository) Delete(ctx context.Context, addr address.Address) error {
	result, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE address = $1`, addr.Bytes())
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", addr, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", addr)
	}

	r.written(addr)
	return nil
}

// ListByKind returns all accounts of a kind ordered by address
func (r *AccountRepository) ListByKind(ctx context.Context, kind models.AccountKind) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE kind = $1 ORDER BY address`

	rows, err := r.q.Query(ctx, query, int16(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s accounts: %w", kind, err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s account: %w", kind, err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s accounts: %w", kind, err)
	}

	return accounts, nil
}

func (r *AccountRepository) written(addr address.Address) {
	if r.onWrite != nil {
		r.onWrite(addr)
	}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		account  models.Account
		addr     []byte
		owner    []byte
		kind     int16
		lamports int64
	)

	err := row.Scan(&addr, &owner, &kind, &lamports, &account.Data, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if account.Address, err = address.FromBytes(addr); err != nil {
		return nil, fmt.Errorf("invalid stored address: %w", err)
	}
	if account.Owner, err = address.FromBytes(owner); err != nil {
		return nil, fmt.Errorf("invalid stored owner: %w", err)
	}
	account.Kind = models.AccountKind(kind)
	account.Lamports = uint64(lamports)

	return &account, nil
}

// lamports are stored as BIGINT
func toBigint(lamports uint64) (int64, error) {
	if lamports > math.MaxInt64 {
		return 0, service.ErrArithmeticOverflow.WithMessage("balance %d exceeds storage range", lamports)
	}
	return int64(lamports), nil
}

func dataOrEmpty(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}
