package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"lotto-server/common"
	"lotto-server/common/constant"
	"lotto-server/common/logger"

	"go.uber.org/zap"
)

const TableCustomer = "customer"

// Customer is an account holder with a wallet (table customer).
type Customer struct {
	ID        int64           `db:"cus_id" json:"cus_id"`
	FullName  string          `db:"fullname" json:"fullname"`
	Phone     string          `db:"phone" json:"phone"`
	Email     string          `db:"email" json:"email"`
	Password  string          `db:"password" json:"-"` // bcrypt hash
	Balance   decimal.Decimal `db:"wallet_balance" json:"wallet_balance"`
	Role      string          `db:"role" json:"role"`
	CreatedAt int64           `db:"created_at" json:"created_at"`
	UpdatedAt int64           `db:"updated_at" json:"updated_at"`
}

var customerFields = common.EnumFields(Customer{})

func GetCustomerByID(ctx context.Context, c common.Conn, id int64) (*Customer, error) {
	var cu Customer
	if err := common.SelectOneCtx(ctx, c, &cu, TableCustomer, customerFields, g.Ex{"cus_id": id}); err != nil {
		return nil, err
	}
	cu.Balance = cu.Balance.Round(2)
	return &cu, nil
}

func GetCustomerByEmail(ctx context.Context, c common.Conn, email string) (*Customer, error) {
	var cu Customer
	if err := common.SelectOneCtx(ctx, c, &cu, TableCustomer, customerFields, g.Ex{"email": email}); err != nil {
		return nil, err
	}
	cu.Balance = cu.Balance.Round(2)
	return &cu, nil
}

func CountCustomers(ctx context.Context, c common.Conn, ex g.Ex) (int, error) {
	n, err := common.CountCtx(ctx, c, TableCustomer, ex)
	return n, errors.Wrap(err, "count customers")
}

// Insert stores cu and fills ID. Role defaults to user.
func (cu *Customer) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	cu.CreatedAt, cu.UpdatedAt = now, now
	if cu.Role == "" {
		cu.Role = constant.RoleUser
	}

	query := `INSERT INTO customer (fullname, phone, email, password, wallet_balance, role, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := exec.ExecContext(ctx, query,
		cu.FullName, cu.Phone, cu.Email, cu.Password, cu.Balance.StringFixed(2), cu.Role, cu.CreatedAt, cu.UpdatedAt)
	if err != nil {
		logger.Error("insert customer failed", zap.String("email", cu.Email), zap.Error(err))
		return errors.Wrapf(err, "insert customer %s", cu.Email)
	}

	cu.ID, err = result.LastInsertId()
	return errors.Wrap(err, "customer last insert id")
}

// AdjustBalance adds delta (negative to debit) and returns the balance after
// the change. The update only applies when the result stays >= 0; ok=false
// means the row is missing or the debit would overdraw.
//
// SQLite keeps DECIMAL columns as REAL, so the sum is rounded to cents in
// both the SET and the guard; on MySQL the ROUND is a no-op.
func AdjustBalance(ctx context.Context, exec sqlx.ExtContext, id int64, delta decimal.Decimal) (after decimal.Decimal, ok bool, err error) {
	d := delta.StringFixed(2)
	query := `UPDATE customer
	          SET wallet_balance = ROUND(wallet_balance + CAST(? AS DECIMAL(18,2)), 2), updated_at = ?
	          WHERE cus_id = ? AND ROUND(wallet_balance + CAST(? AS DECIMAL(18,2)), 2) >= 0`
	res, err := exec.ExecContext(ctx, query, d, time.Now().UnixMilli(), id, d)
	if err != nil {
		return decimal.Zero, false, errors.Wrapf(err, "adjust balance cus_id=%d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return decimal.Zero, false, errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return decimal.Zero, false, nil
	}

	// same transaction, so this reads our own write
	if err := sqlx.GetContext(ctx, exec, &after, "SELECT wallet_balance FROM customer WHERE cus_id = ?", id); err != nil {
		return decimal.Zero, false, errors.Wrapf(err, "read balance cus_id=%d", id)
	}
	return after.Round(2), true, nil
}

// DeleteNonAdminCustomers removes every customer whose role is not admin.
func DeleteNonAdminCustomers(ctx context.Context, c common.Conn) (int64, error) {
	res, err := common.DeleteCtx(ctx, c, TableCustomer, g.C("role").Neq(constant.RoleAdmin))
	if err != nil {
		return 0, errors.Wrap(err, "delete non-admin customers")
	}
	return res.RowsAffected()
}
