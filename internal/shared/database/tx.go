package database

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type txKey struct{}

type hooksKey struct{}

// Transactor runs a function inside a unit of work. Repositories reach the
// active transaction through Conn, so services in different packages can
// share one transaction by passing the context along.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// GormTransactor implements Transactor on top of gorm transactions.
type GormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTx starts a transaction unless ctx already carries one, in which case
// fn joins it and the outermost caller commits. AfterCommit callbacks run once
// the outermost transaction has committed.
func (t *GormTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	ctx, runHooks := WithCommitHooks(ctx)
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		return err
	}
	runHooks()
	return nil
}

// Conn returns the transaction carried by ctx, or fallback bound to ctx.
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *commitHooks) run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// WithCommitHooks returns a context that collects AfterCommit callbacks and
// the function that runs them. A Transactor calls it for its outermost unit
// of work and runs the hooks only after a successful commit.
func WithCommitHooks(ctx context.Context) (context.Context, func()) {
	h := &commitHooks{}
	return context.WithValue(ctx, hooksKey{}, h), h.run
}

// AfterCommit defers fn until the unit of work carried by ctx commits. Outside
// a unit of work fn runs immediately. Rolled back work never runs its hooks.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*commitHooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}
