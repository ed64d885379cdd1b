package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/payment"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付记录仓储
func NewPaymentRepository(db *gorm.DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	model := toPaymentModel(rec)
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(model).Error; err != nil {
		if isForeignKeyError(err) {
			return borrowing.ErrBorrowingNotFound
		}
		return apperrors.Wrap(err, "创建支付记录失败")
	}

	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	rec.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*payment.Record, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *paymentRepository) FindBySessionID(ctx context.Context, sessionID string) (*payment.Record, error) {
	return r.first(conn(ctx, r.db).Where("session_id = ?", sessionID))
}

func (r *paymentRepository) LockBySessionID(ctx context.Context, sessionID string) (*payment.Record, error) {
	return r.first(conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", sessionID))
}

func (r *paymentRepository) LockLatestByBorrowing(ctx context.Context, borrowingID uint) (*payment.Record, error) {
	return r.first(conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("borrowing_id = ?", borrowingID).
		Order("id DESC"))
}

func (r *paymentRepository) first(query *gorm.DB) (*payment.Record, error) {
	var model PaymentModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "查询支付记录失败")
	}
	return toPaymentEntity(&model), nil
}

func (r *paymentRepository) ListByBorrowings(ctx context.Context, borrowingIDs []uint) (map[uint][]*payment.Record, error) {
	out := make(map[uint][]*payment.Record, len(borrowingIDs))
	if len(borrowingIDs) == 0 {
		return out, nil
	}

	var models []PaymentModel
	err := conn(ctx, r.db).
		Where("borrowing_id IN ?", borrowingIDs).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询支付记录失败")
	}

	for i := range models {
		rec := toPaymentEntity(&models[i])
		out[rec.BorrowingID] = append(out[rec.BorrowingID], rec)
	}
	return out, nil
}

func (r *paymentRepository) List(ctx context.Context, params payment.ListParams) ([]*payment.Record, int64, error) {
	var (
		models []PaymentModel
		total  int64
	)

	query := conn(ctx, r.db).Model(&PaymentModel{})
	if params.OwnerID != nil {
		query = query.
			Joins("JOIN borrowings ON borrowings.id = payments.borrowing_id").
			Where("borrowings.user_id = ?", *params.OwnerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询支付记录总数失败")
	}

	err := query.Select("payments.*").
		Order("payments.id ASC").
		Limit(params.PageSize).
		Offset(offset(params.Page, params.PageSize)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询支付记录列表失败")
	}

	list := make([]*payment.Record, len(models))
	for i := range models {
		list[i] = toPaymentEntity(&models[i])
	}
	return list, total, nil
}

func (r *paymentRepository) Update(ctx context.Context, rec *payment.Record) error {
	model := toPaymentModel(rec)
	if err := conn(ctx, r.db).Omit(clause.Associations).Save(model).Error; err != nil {
		return apperrors.Wrap(err, "更新支付记录失败")
	}
	rec.UpdatedAt = model.UpdatedAt
	return nil
}

// AttachSession UPDATE payments SET session_... WHERE id = ? AND status = PENDING AND kind = ?
// 会话开启期间记录可能已被支付或改为罚金，条件不满足时不覆盖
func (r *paymentRepository) AttachSession(ctx context.Context, id uint, kind payment.Kind, s payment.Session) error {
	db := conn(ctx, r.db)

	sessionID := s.ID
	expiresAt := s.ExpiresAt
	result := db.Model(&PaymentModel{}).
		Where("id = ? AND status = ? AND kind = ?", id, int(payment.StatusPending), int(kind)).
		Updates(map[string]interface{}{
			"session_id":         &sessionID,
			"session_url":        s.URL,
			"session_expires_at": &expiresAt,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "写入支付会话失败")
	}

	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return payment.ErrStaleRecord
	}
	return nil
}

func toPaymentModel(rec *payment.Record) *PaymentModel {
	m := &PaymentModel{
		ID:          rec.ID,
		BorrowingID: rec.BorrowingID,
		Kind:        int(rec.Kind),
		Status:      int(rec.Status),
		AmountDue:   rec.AmountDue,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.Session != nil {
		id := rec.Session.ID
		m.SessionID = &id
		m.SessionURL = rec.Session.URL
		if !rec.Session.ExpiresAt.IsZero() {
			exp := rec.Session.ExpiresAt
			m.SessionExpiresAt = &exp
		}
	}
	return m
}

func toPaymentEntity(m *PaymentModel) *payment.Record {
	rec := &payment.Record{
		ID:          m.ID,
		BorrowingID: m.BorrowingID,
		Kind:        payment.Kind(m.Kind),
		Status:      payment.Status(m.Status),
		AmountDue:   m.AmountDue,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.SessionID != nil && *m.SessionID != "" {
		rec.Session = &payment.Session{ID: *m.SessionID, URL: m.SessionURL}
		if m.SessionExpiresAt != nil {
			rec.Session.ExpiresAt = *m.SessionExpiresAt
		}
	}
	return rec
}
