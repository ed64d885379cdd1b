package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrowing"
	"github.com/xiebiao/library/internal/domain/inventory"
	"github.com/xiebiao/library/internal/domain/payment"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// =========================================
// 图书
// =========================================

type bookRepo struct{ s *Store }

func (r *bookRepo) Create(ctx context.Context, b *book.Book) error {
	return r.s.write(ctx, "book.Create", func() error {
		b.ID = r.s.id()
		r.s.books[b.ID] = *b
		return nil
	})
}

func (r *bookRepo) FindByID(_ context.Context, id uint) (*book.Book, error) {
	var out *book.Book
	err := r.s.read("book.FindByID", func() error {
		b, ok := r.s.books[id]
		if !ok {
			return book.ErrBookNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

// Update 与数据库仓储一致，不改库存
func (r *bookRepo) Update(ctx context.Context, b *book.Book) error {
	return r.s.write(ctx, "book.Update", func() error {
		stored, ok := r.s.books[b.ID]
		if !ok {
			return book.ErrBookNotFound
		}
		next := *b
		next.Inventory = stored.Inventory
		r.s.books[b.ID] = next
		return nil
	})
}

func (r *bookRepo) Delete(ctx context.Context, id uint) error {
	return r.s.write(ctx, "book.Delete", func() error {
		if _, ok := r.s.books[id]; !ok {
			return book.ErrBookNotFound
		}
		for _, b := range r.s.borrowings {
			if b.BookID == id {
				return book.ErrBookInUse
			}
		}
		delete(r.s.books, id)
		return nil
	})
}

func (r *bookRepo) List(_ context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var all []*book.Book
	err := r.s.read("book.List", func() error {
		kw := strings.ToLower(params.Keyword)
		for _, b := range r.s.books {
			if kw != "" && !strings.Contains(strings.ToLower(b.Title), kw) && !strings.Contains(strings.ToLower(b.Author), kw) {
				continue
			}
			if params.Available && b.Inventory == 0 {
				continue
			}
			b := b
			all = append(all, &b)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, params.Page, params.PageSize), int64(len(all)), nil
}

func (r *bookRepo) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *bookRepo) AdjustInventory(ctx context.Context, id uint, delta int) error {
	return r.s.write(ctx, "book.AdjustInventory", func() error {
		b, ok := r.s.books[id]
		if !ok {
			return book.ErrBookNotFound
		}
		if b.Inventory+delta < 0 {
			return inventory.ErrOutOfStock
		}
		b.Inventory += delta
		r.s.books[id] = b
		return nil
	})
}

// =========================================
// 借阅
// =========================================

type borrowingRepo struct{ s *Store }

func (r *borrowingRepo) Create(ctx context.Context, b *borrowing.Borrowing) error {
	return r.s.write(ctx, "borrowing.Create", func() error {
		if _, ok := r.s.books[b.BookID]; !ok {
			return book.ErrBookNotFound
		}
		b.ID = r.s.id()
		r.s.borrowings[b.ID] = cloneBorrowing(*b)
		return nil
	})
}

func (r *borrowingRepo) FindByID(_ context.Context, id uint) (*borrowing.Borrowing, error) {
	var out *borrowing.Borrowing
	err := r.s.read("borrowing.FindByID", func() error {
		b, ok := r.s.borrowings[id]
		if !ok {
			return borrowing.ErrBorrowingNotFound
		}
		c := cloneBorrowing(b)
		out = &c
		return nil
	})
	return out, err
}

func (r *borrowingRepo) LockByID(ctx context.Context, id uint) (*borrowing.Borrowing, error) {
	return r.FindByID(ctx, id)
}

func (r *borrowingRepo) Update(ctx context.Context, b *borrowing.Borrowing) error {
	return r.s.write(ctx, "borrowing.Update", func() error {
		if _, ok := r.s.borrowings[b.ID]; !ok {
			return borrowing.ErrBorrowingNotFound
		}
		r.s.borrowings[b.ID] = cloneBorrowing(*b)
		return nil
	})
}

func (r *borrowingRepo) List(_ context.Context, params borrowing.ListParams) ([]*borrowing.Borrowing, int64, error) {
	var all []*borrowing.Borrowing
	err := r.s.read("borrowing.List", func() error {
		for _, b := range r.s.borrowings {
			if params.UserID != nil && b.UserID != *params.UserID {
				continue
			}
			if params.IsActive != nil && b.IsActive() != *params.IsActive {
				continue
			}
			c := cloneBorrowing(b)
			all = append(all, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, params.Page, params.PageSize), int64(len(all)), nil
}

func cloneBorrowing(b borrowing.Borrowing) borrowing.Borrowing {
	if b.ActualReturnDate != nil {
		d := *b.ActualReturnDate
		b.ActualReturnDate = &d
	}
	return b
}

// =========================================
// 支付记录
// =========================================

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, rec *payment.Record) error {
	return r.s.write(ctx, "payment.Create", func() error {
		if _, ok := r.s.borrowings[rec.BorrowingID]; !ok {
			return borrowing.ErrBorrowingNotFound
		}
		rec.ID = r.s.id()
		r.s.payments[rec.ID] = cloneRecord(*rec)
		return nil
	})
}

func (r *paymentRepo) FindByID(_ context.Context, id uint) (*payment.Record, error) {
	var out *payment.Record
	err := r.s.read("payment.FindByID", func() error {
		rec, ok := r.s.payments[id]
		if !ok {
			return payment.ErrPaymentNotFound
		}
		c := cloneRecord(rec)
		out = &c
		return nil
	})
	return out, err
}

func (r *paymentRepo) FindBySessionID(_ context.Context, sessionID string) (*payment.Record, error) {
	var out *payment.Record
	err := r.s.read("payment.FindBySessionID", func() error {
		for _, rec := range r.s.payments {
			if rec.Session != nil && rec.Session.ID == sessionID {
				c := cloneRecord(rec)
				out = &c
				return nil
			}
		}
		return payment.ErrPaymentNotFound
	})
	return out, err
}

func (r *paymentRepo) LockBySessionID(ctx context.Context, sessionID string) (*payment.Record, error) {
	return r.FindBySessionID(ctx, sessionID)
}

func (r *paymentRepo) LockLatestByBorrowing(_ context.Context, borrowingID uint) (*payment.Record, error) {
	var out *payment.Record
	err := r.s.read("payment.LockLatestByBorrowing", func() error {
		for _, rec := range r.s.payments {
			if rec.BorrowingID != borrowingID {
				continue
			}
			if out == nil || rec.ID > out.ID {
				c := cloneRecord(rec)
				out = &c
			}
		}
		if out == nil {
			return payment.ErrPaymentNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *paymentRepo) ListByBorrowings(_ context.Context, borrowingIDs []uint) (map[uint][]*payment.Record, error) {
	want := make(map[uint]bool, len(borrowingIDs))
	for _, id := range borrowingIDs {
		want[id] = true
	}

	out := make(map[uint][]*payment.Record)
	err := r.s.read("payment.ListByBorrowings", func() error {
		for _, rec := range r.s.payments {
			if want[rec.BorrowingID] {
				c := cloneRecord(rec)
				out[rec.BorrowingID] = append(out[rec.BorrowingID], &c)
			}
		}
		return nil
	})
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return out, err
}

func (r *paymentRepo) List(_ context.Context, params payment.ListParams) ([]*payment.Record, int64, error) {
	var all []*payment.Record
	err := r.s.read("payment.List", func() error {
		for _, rec := range r.s.payments {
			if params.OwnerID != nil && r.s.borrowings[rec.BorrowingID].UserID != *params.OwnerID {
				continue
			}
			c := cloneRecord(rec)
			all = append(all, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, params.Page, params.PageSize), int64(len(all)), nil
}

func (r *paymentRepo) Update(ctx context.Context, rec *payment.Record) error {
	return r.s.write(ctx, "payment.Update", func() error {
		if _, ok := r.s.payments[rec.ID]; !ok {
			return payment.ErrPaymentNotFound
		}
		r.s.payments[rec.ID] = cloneRecord(*rec)
		return nil
	})
}

func (r *paymentRepo) AttachSession(ctx context.Context, id uint, kind payment.Kind, sess payment.Session) error {
	return r.s.write(ctx, "payment.AttachSession", func() error {
		rec, ok := r.s.payments[id]
		if !ok {
			return payment.ErrPaymentNotFound
		}
		if rec.Status != payment.StatusPending || rec.Kind != kind {
			return payment.ErrStaleRecord
		}
		rec.Session = &sess
		r.s.payments[id] = rec
		return nil
	})
}

func cloneRecord(rec payment.Record) payment.Record {
	if rec.Session != nil {
		s := *rec.Session
		rec.Session = &s
	}
	return rec
}

// =========================================
// 用户
// =========================================

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	return r.s.write(ctx, "user.Create", func() error {
		for _, existing := range r.s.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return apperrors.ErrEmailDuplicate
			}
		}
		u.ID = r.s.id()
		r.s.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) FindByID(_ context.Context, id uint) (*user.User, error) {
	var out *user.User
	err := r.s.read("user.FindByID", func() error {
		u, ok := r.s.users[id]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	var out *user.User
	err := r.s.read("user.FindByEmail", func() error {
		for _, u := range r.s.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return out, err
}

func (r *userRepo) Update(ctx context.Context, u *user.User) error {
	return r.s.write(ctx, "user.Update", func() error {
		if _, ok := r.s.users[u.ID]; !ok {
			return apperrors.ErrUserNotFound
		}
		r.s.users[u.ID] = *u
		return nil
	})
}
