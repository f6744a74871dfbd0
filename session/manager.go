package session

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-dbsession/config"
	"github.com/gaborage/go-dbsession/logger"
	"github.com/gaborage/go-dbsession/session/types"
)

const tracerName = "github.com/gaborage/go-dbsession/session"

// UnitOfWork is the function a caller hands to Run. It receives a context
// carrying the transaction binding (pass it to nested Run calls) and the
// TxContext for issuing statements.
type UnitOfWork func(ctx context.Context, tx *TxContext) error

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// DefaultIsolation is used by TxContext.DefaultConnection. Defaults to
	// ReadCommitted.
	DefaultIsolation types.Isolation

	// DefaultReadOnly marks DefaultConnection requests read-only.
	DefaultReadOnly bool

	// MaxPerTask caps outstanding pool acquisitions per task, passed
	// through to Source.Acquire. Defaults to 8.
	MaxPerTask int

	// Hooks are invoked around physical connection acquire/release.
	Hooks Hooks

	// TracerProvider emits one span per outermost transaction. Defaults to
	// the global provider.
	TracerProvider trace.TracerProvider
}

// OptionsFromConfig derives ManagerOptions from a database configuration.
func OptionsFromConfig(cfg *config.DatabaseConfig) (ManagerOptions, error) {
	opts := ManagerOptions{
		DefaultReadOnly: cfg.Session.ReadOnly,
		MaxPerTask:      cfg.Session.MaxPerTask,
	}
	if cfg.Session.Isolation != "" {
		level, err := types.ParseIsolation(cfg.Session.Isolation)
		if err != nil {
			return opts, err
		}
		opts.DefaultIsolation = level
	}
	return opts, nil
}

// Manager implements the reentrant transaction protocol over a single
// Source. The first (outermost) Run on a task creates and binds a TxContext;
// nested Run calls reuse it; only the outermost call commits, and the
// binding is always cleared before the outermost call returns.
type Manager struct {
	source          types.Source
	logger          logger.Logger
	defaultLevel    types.Isolation
	defaultReadOnly bool
	maxPerTask      int
	hooks           Hooks
	tracer          trace.Tracer

	// active tracks bound contexts by transaction id for diagnostics.
	// Entries are created at outermost begin and removed unconditionally
	// on exit.
	mu     sync.RWMutex
	active map[string]*TxContext
}

// NewManager creates a transaction manager on top of source.
func NewManager(source types.Source, log logger.Logger, opts ManagerOptions) *Manager {
	if opts.MaxPerTask <= 0 {
		opts.MaxPerTask = 8
	}
	if opts.DefaultIsolation < types.ReadUncommitted || opts.DefaultIsolation > types.Serializable {
		opts.DefaultIsolation = types.ReadCommitted
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Manager{
		source:          source,
		logger:          log,
		defaultLevel:    opts.DefaultIsolation,
		defaultReadOnly: opts.DefaultReadOnly,
		maxPerTask:      opts.MaxPerTask,
		hooks:           opts.Hooks,
		tracer:          tp.Tracer(tracerName),
		active:          make(map[string]*TxContext),
	}
}

// InTransaction reports whether a transaction context is bound to the
// calling task.
func (m *Manager) InTransaction(ctx context.Context) bool {
	tc := txContextFrom(ctx)
	return tc != nil && tc.manager == m
}

// Run executes fn inside the task's transaction, starting one when none is
// bound. On normal return of the outermost call the transaction commits and
// the connection returns to the pool. On failure the transaction rolls back;
// whether the connection survives depends on the failure classification (see
// Classify). The original failure always propagates to the caller, with any
// cleanup failure attached, never substituted.
func (m *Manager) Run(ctx context.Context, fn UnitOfWork) error {
	if tc := txContextFrom(ctx); tc != nil && tc.manager == m {
		return m.runNested(ctx, tc, fn)
	}
	return m.runRoot(ctx, fn)
}

// runNested executes fn against the already-bound context. It never commits
// and never clears the binding; both belong to the outermost call.
func (m *Manager) runNested(ctx context.Context, tc *TxContext, fn UnitOfWork) error {
	err := fn(ctx, tc)
	if err == nil {
		return nil
	}

	switch Classify(err) {
	case FailureResult:
		// A benign result signal: the enclosing outermost call rolls the
		// transaction back; the connection is not touched here.
		return err
	case FailurePoisoned:
		if dErr := tc.handle.rollbackAndDiscard(ctx); dErr != nil {
			err = errors.Join(err, dErr)
		}
		return err
	default:
		if _, rbErr := tc.handle.rollback(ctx); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return err
	}
}

// runRoot creates, binds, and ultimately closes a new transaction context.
func (m *Manager) runRoot(ctx context.Context, fn UnitOfWork) (err error) {
	tc := &TxContext{
		manager: m,
		handle:  newConnHandle(m.source, m.logger, m.maxPerTask, m.hooks),
	}

	m.bind(tc)
	runCtx, span := m.startSpan(withTxContext(ctx, tc), tc)

	finished := false
	defer func() {
		m.unbind(tc)
		if !finished {
			// A panic or forced goroutine exit is in flight. The
			// connection state is unknown: terminate it without touching
			// the transaction, then let the signal continue.
			tc.handle.discard()
		}
		m.endSpan(span, err)
	}()

	err = fn(runCtx, tc)
	if err == nil {
		if err = tc.handle.commit(ctx); err == nil {
			finished = true
			if closeErr := tc.close(ctx); closeErr != nil {
				return closeErr
			}
			return nil
		}
		// A failed commit is handled below through the same classification
		// as any other failure.
	}

	finished = true
	switch Classify(err) {
	case FailurePoisoned:
		if dErr := tc.handle.rollbackAndDiscard(ctx); dErr != nil {
			err = errors.Join(err, dErr)
		}
	default:
		// Both result signals and ordinary failures roll back here, at the
		// outermost level, and keep the connection for the pool.
		if _, rbErr := tc.handle.rollback(ctx); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		if closeErr := tc.close(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	m.logger.Debug().
		Str("tx_id", tc.ID()).
		Str("outcome", Classify(err).String()).
		Err(err).
		Msg("Transaction rolled back")

	return err
}

func (m *Manager) bind(tc *TxContext) {
	m.mu.Lock()
	m.active[tc.ID()] = tc
	m.mu.Unlock()
}

func (m *Manager) unbind(tc *TxContext) {
	m.mu.Lock()
	delete(m.active, tc.ID())
	m.mu.Unlock()
}

// Close shuts down the underlying connection source. In-flight transactions
// are not waited for; callers own that ordering.
func (m *Manager) Close() error {
	return m.source.Close()
}

// ActiveTransactions returns the number of currently bound contexts.
func (m *Manager) ActiveTransactions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Stats returns diagnostic counters for the manager.
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}

	return map[string]any{
		"vendor":              m.source.Vendor(),
		"active_transactions": len(m.active),
		"transaction_ids":     ids,
		"default_isolation":   m.defaultLevel.String(),
	}
}

// RunValue executes a result-returning unit of work through m.Run.
func RunValue[T any](ctx context.Context, m *Manager, fn func(ctx context.Context, tx *TxContext) (T, error)) (T, error) {
	var out T
	err := m.Run(ctx, func(ctx context.Context, tx *TxContext) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
