package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/TuanStark/dorm-microservice-system-sub000/services/payment-service/internal/domain"
)

var (
	ErrNotFound = errors.New("payment not found")
	// ErrReferenceTaken: another PENDING payment already carries the
	// reference; the caller regenerates and retries.
	ErrReferenceTaken = errors.New("reference already in use")
	// ErrInvalidTransition: the requested status is not reachable from the
	// current one (duplicate same-status writes are a silent no-op instead).
	ErrInvalidTransition = errors.New("invalid status transition")
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	ByID(ctx context.Context, id string) (*domain.Payment, error)
	ByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)
	// PendingByReference resolves the unique PENDING payment carrying ref.
	PendingByReference(ctx context.Context, ref string) (*domain.Payment, error)
	// MarkStatus applies a monotonic status write. Returns the payment and
	// whether it changed; writing the current status again is a no-op.
	MarkStatus(ctx context.Context, id, to, transactionID string) (*domain.Payment, bool, error)
}

type GormPaymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) *GormPaymentRepo {
	return &GormPaymentRepo{db: db}
}

func (r *GormPaymentRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Payment{})
}

func (r *GormPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var clash int64
		if err := tx.Model(&domain.Payment{}).
			Where("reference = ? AND status = ?", p.Reference, domain.StatusPending).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return ErrReferenceTaken
		}
		return tx.Create(p).Error
	})
}

func (r *GormPaymentRepo) ByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.one(ctx, "id = ?", id)
}

func (r *GormPaymentRepo) ByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return r.one(ctx, "booking_id = ?", bookingID)
}

func (r *GormPaymentRepo) PendingByReference(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.one(ctx, "reference = ? AND status = ?", ref, domain.StatusPending)
}

func (r *GormPaymentRepo) one(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).First(&p, append([]any{query}, args...)...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPaymentRepo) MarkStatus(ctx context.Context, id, to, transactionID string) (*domain.Payment, bool, error) {
	var p domain.Payment
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.Status == to {
			return nil // duplicate delivery, keep idempotent
		}
		if !domain.CanTransition(p.Status, to) {
			return ErrInvalidTransition
		}
		updates := map[string]any{"status": to}
		if transactionID != "" {
			updates["transaction_id"] = transactionID
			p.TransactionID = transactionID
		}
		if to == domain.StatusSuccess {
			now := time.Now().UTC()
			updates["payment_date"] = now
			p.PaymentDate = &now
		}
		p.Status = to
		changed = true
		return tx.Model(&domain.Payment{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &p, changed, nil
}
