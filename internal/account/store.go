package account

import (
	"context"
	"strings"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lotto-server/common"
	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/common/logger"
	"lotto-server/internal/infra/sqldb"
	"lotto-server/internal/model"
)

var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailTaken        = errors.New("email already registered")
	ErrBadInput          = errors.New("fullname, email and password are required")
)

// Store is the SQL-backed customer store. It implements service.AccountStore.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) conn(exec common.Conn) common.Conn {
	if exec == nil {
		return s.db
	}
	return exec
}

// GetByID loads a customer; a missing row returns sql.ErrNoRows.
func (s *Store) GetByID(ctx context.Context, exec common.Conn, id int64) (*model.Customer, error) {
	return model.GetCustomerByID(ctx, s.conn(exec), id)
}

func (s *Store) GetBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	cu, err := model.GetCustomerByID(ctx, s.db, id)
	if err != nil {
		return decimal.Zero, err
	}
	return cu.Balance, nil
}

// AdjustBalance applies delta on exec without ever going below zero.
func (s *Store) AdjustBalance(ctx context.Context, exec common.Conn, id int64, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	return model.AdjustBalance(ctx, s.conn(exec), id, delta)
}

func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	n, err := model.CountCustomers(ctx, s.db, g.Ex{"cus_id": id})
	return n > 0, err
}

func (s *Store) IsAdmin(ctx context.Context, id int64) (bool, error) {
	n, err := model.CountCustomers(ctx, s.db, g.Ex{"cus_id": id, "role": constant.RoleAdmin})
	return n > 0, err
}

// VerifyCredential returns the customer when password matches the stored hash.
func (s *Store) VerifyCredential(ctx context.Context, email, password string) (*model.Customer, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredential
	}
	cu, err := model.GetCustomerByEmail(ctx, s.db, email)
	if err != nil {
		if helper.IsNoRows(err) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	if !helper.CheckPassword(password, cu.Password) {
		return nil, ErrInvalidCredential
	}
	return cu, nil
}

// NewCustomer is the registration input.
type NewCustomer struct {
	FullName string
	Phone    string
	Email    string
	Password string
	Balance  decimal.Decimal
	Role     string
}

// Create registers a customer with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, in NewCustomer) (*model.Customer, error) {
	email := normalizeEmail(in.Email)
	if helper.IsEmptyString(in.FullName) || email == "" || in.Password == "" {
		return nil, ErrBadInput
	}
	if in.Balance.IsNegative() {
		return nil, errors.New("initial balance must not be negative")
	}
	hash, err := helper.HashPassword(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	cu := &model.Customer{
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Email:    email,
		Password: hash,
		Balance:  in.Balance,
		Role:     in.Role,
	}
	if err := cu.Insert(ctx, s.db); err != nil {
		if sqldb.IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return cu, nil
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	FullName string `yaml:"fullname" json:"fullname"`
	Phone    string `yaml:"phone" json:"phone"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
	Balance  string `yaml:"balance" json:"balance"`
}

func DefaultAdminSeed() AdminSeed {
	return AdminSeed{
		FullName: "Administrator",
		Phone:    "0000000000",
		Email:    "admin@example.com",
		Password: "admin123",
		Balance:  "1000",
	}
}

// EnsureAdmin creates the administrator unless an account with its email
// already exists. Safe to run on every start.
func (s *Store) EnsureAdmin(ctx context.Context, seed AdminSeed) (created bool, err error) {
	email := normalizeEmail(seed.Email)
	if email == "" {
		return false, ErrBadInput
	}
	_, err = model.GetCustomerByEmail(ctx, s.db, email)
	if err == nil {
		logger.Debug("admin already present", zap.String("email", email))
		return false, nil
	}
	if !helper.IsNoRows(err) {
		return false, err
	}

	balance, ok := helper.ParseAmount(seed.Balance)
	if !ok {
		balance = decimal.Zero
	}
	_, err = s.Create(ctx, NewCustomer{
		FullName: seed.FullName,
		Phone:    seed.Phone,
		Email:    email,
		Password: seed.Password,
		Balance:  balance,
		Role:     constant.RoleAdmin,
	})
	if errors.Is(err, ErrEmailTaken) {
		// another instance seeded it between our read and insert
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logger.Info("admin account created", zap.String("email", email), zap.String("balance", helper.TrimDecimal(balance)))
	return true, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
