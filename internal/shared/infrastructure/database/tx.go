package database

import "context"

type txKey struct{}

type txState struct {
	tx    Transaction
	owner bool
}

// ContextWithTx stores tx in ctx. owner marks the unit of work responsible
// for finishing it.
func ContextWithTx(ctx context.Context, tx Transaction, owner bool) context.Context {
	return context.WithValue(ctx, txKey{}, txState{tx: tx, owner: owner})
}

// TxFromContext returns the transaction carried by ctx, or nil.
func TxFromContext(ctx context.Context) Transaction {
	state, _ := ctx.Value(txKey{}).(txState)
	return state.tx
}

// ExecutorFromContext prefers the transaction in ctx and falls back to conn,
// so repositories work the same inside and outside a unit of work.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return conn
}

// UnitOfWork implements application.UnitOfWork on top of a Connection.
// A Begin on a context that already carries a transaction joins it; only the
// outermost unit commits or rolls back.
type UnitOfWork struct {
	conn Connection
}

func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return ContextWithTx(ctx, tx, false), nil
	}
	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return ContextWithTx(ctx, tx, true), nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	state, ok := ctx.Value(txKey{}).(txState)
	if !ok || state.tx == nil {
		return ErrNoTransaction
	}
	if !state.owner {
		return nil
	}
	return state.tx.Commit(ctx)
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	state, ok := ctx.Value(txKey{}).(txState)
	if !ok || state.tx == nil {
		return ErrNoTransaction
	}
	if !state.owner {
		return nil
	}
	return state.tx.Rollback(ctx)
}
