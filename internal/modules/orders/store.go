package orders

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the durable boundary of the order lifecycle. Implementations must
// guarantee: one row per payment id (InsertDraftIfAbsent), a compare-and-set
// pending->claimed transition (Claim), and a single atomic terminal update
// (MarkTerminal) so no reader observes a supplier response without a terminal
// status and processed_at.
type Store interface {
	InsertDraftIfAbsent(ctx context.Context, o Order, items []OrderItem) (Order, bool, error)
	GetByPaymentID(ctx context.Context, paymentID string) (Order, []OrderItem, error)
	Claim(ctx context.Context, paymentID string) (bool, error)
	MarkTerminal(ctx context.Context, paymentID string, resp datatypes.JSON, status string) error
}

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// InsertDraftIfAbsent creates the draft row and its item snapshot, or returns
// the existing row when the payment id is already known. The unique index on
// payment_id decides the race; losers keep the first payload's values.
func (r *Repo) InsertDraftIfAbsent(ctx context.Context, o Order, items []OrderItem) (Order, bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			return tx.Create(&items).Error
		}
		return nil
	})
	if err == nil {
		return o, true, nil
	}
	if !isDup(err) {
		return Order{}, false, err
	}

	var existing Order
	if err := r.db.WithContext(ctx).First(&existing, "payment_id = ?", o.PaymentID).Error; err != nil {
		return Order{}, false, err
	}
	return existing, false, nil
}

func (r *Repo) GetByPaymentID(ctx context.Context, paymentID string) (Order, []OrderItem, error) {
	var o Order
	if err := r.db.WithContext(ctx).First(&o, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, nil, ErrNotFound
		}
		return Order{}, nil, err
	}
	var items []OrderItem
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&items, "order_id = ?", o.ID).Error; err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

// Claim atomically moves pending -> claimed. Exactly one of any number of
// concurrent callers for the same payment id sees true.
func (r *Repo) Claim(ctx context.Context, paymentID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("payment_id = ? AND status = ? AND supplier_response IS NULL", paymentID, StatusPending).
		Updates(map[string]any{
			"status":     StatusClaimed,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkTerminal records the dispatch outcome. Supplier response, terminal
// status and processed_at land in one UPDATE.
func (r *Repo) MarkTerminal(ctx context.Context, paymentID string, resp datatypes.JSON, status string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]any{
			"supplier_response": resp,
			"status":            status,
			"processed_at":      &now,
			"updated_at":        now,
		}).Error
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
