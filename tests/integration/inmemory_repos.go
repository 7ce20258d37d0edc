package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMerchantRepo) ListActive(ctx context.Context) ([]domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Merchant
	for _, m := range r.merchants {
		if m.IsActive() {
			result = append(result, *m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *inMemoryMerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.merchants[m.ID]; !ok {
		return fmt.Errorf("merchant not found")
	}
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

// --- In-Memory Balance Repo ---

type inMemoryBalanceRepo struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]*domain.Balance // keyed by merchant ID
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{balances: make(map[uuid.UUID]*domain.Balance)}
}

func (r *inMemoryBalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Insert-if-absent: concurrent lazy creators converge on one row.
	if _, ok := r.balances[b.MerchantID]; ok {
		return nil
	}
	cp := *b
	r.balances[b.MerchantID] = &cp
	return nil
}

func (r *inMemoryBalanceRepo) GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[merchantID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBalanceRepo) GetByMerchantIDForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID) (*domain.Balance, error) {
	// Row locking is simulated by the transactor's global lock.
	return r.GetByMerchantID(ctx, merchantID)
}

func (r *inMemoryBalanceRepo) UpdateBuckets(ctx context.Context, tx pgx.Tx, balanceID uuid.UUID, reserve, available, pending decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.balances {
		if b.ID == balanceID {
			b.Reserve = reserve
			b.Available = available
			b.Pending = pending
			b.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("balance not found")
}

// --- In-Memory Rate Repo ---

type inMemoryRateRepo struct {
	mu        sync.RWMutex
	snapshots []*domain.FxRateSnapshot
}

func newInMemoryRateRepo() *inMemoryRateRepo {
	return &inMemoryRateRepo{}
}

func (r *inMemoryRateRepo) GetOpen(ctx context.Context, base, quote string) (*domain.FxRateSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.snapshots {
		if s.BaseCurrency == base && s.QuoteCurrency == quote && s.IsOpen() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryRateRepo) GetAt(ctx context.Context, base, quote string, at time.Time) (*domain.FxRateSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.snapshots {
		if s.BaseCurrency == base && s.QuoteCurrency == quote && s.Covers(at) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryRateRepo) GetOpenForUpdate(ctx context.Context, tx pgx.Tx, base, quote string) (*domain.FxRateSnapshot, error) {
	return r.GetOpen(ctx, base, quote)
}

func (r *inMemoryRateRepo) Close(ctx context.Context, tx pgx.Tx, id uuid.UUID, closedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snapshots {
		if s.ID == id {
			t := closedAt
			s.EffectiveTo = &t
			return nil
		}
	}
	return fmt.Errorf("snapshot not found")
}

func (r *inMemoryRateRepo) Insert(ctx context.Context, tx pgx.Tx, snapshot *domain.FxRateSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *snapshot
	r.snapshots = append(r.snapshots, &cp)
	return nil
}

// --- In-Memory Settings Repo ---

type inMemorySettingsRepo struct {
	mu       sync.RWMutex
	settings map[string]*domain.Setting
}

func newInMemorySettingsRepo() *inMemorySettingsRepo {
	return &inMemorySettingsRepo{settings: make(map[string]*domain.Setting)}
}

func (r *inMemorySettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySettingsRepo) List(ctx context.Context) ([]domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Setting, 0, len(r.settings))
	for _, s := range r.settings {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (r *inMemorySettingsRepo) InsertIfAbsent(ctx context.Context, setting *domain.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[setting.Key]; ok {
		return nil
	}
	cp := *setting
	r.settings[setting.Key] = &cp
	return nil
}

func (r *inMemorySettingsRepo) Update(ctx context.Context, key, value, updatedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[key]
	if !ok {
		return false, nil
	}
	s.Value = value
	s.UpdatedBy = updatedBy
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

// --- In-Memory Adjustment Repo ---

type inMemoryAdjustmentRepo struct {
	mu          sync.RWMutex
	adjustments []domain.BalanceAdjustment
}

func newInMemoryAdjustmentRepo() *inMemoryAdjustmentRepo {
	return &inMemoryAdjustmentRepo{}
}

func (r *inMemoryAdjustmentRepo) Create(ctx context.Context, tx pgx.Tx, adj *domain.BalanceAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments = append(r.adjustments, *adj)
	return nil
}

func (r *inMemoryAdjustmentRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]domain.BalanceAdjustment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.BalanceAdjustment
	for i := len(r.adjustments) - 1; i >= 0 && len(result) < limit; i-- {
		if r.adjustments[i].MerchantID == merchantID {
			result = append(result, r.adjustments[i])
		}
	}
	return result, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serialises transactions with one global mutex,
// standing in for row-level SELECT FOR UPDATE locking.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockTx{release: &t.mu}, nil
}

// lockTx is a pgx.Tx implementation that holds the transactor's lock
// until Commit or Rollback, whichever comes first.
type lockTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *lockTx) unlock() {
	t.once.Do(t.release.Unlock)
}

func (t *lockTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockTx) Commit(ctx context.Context) error          { t.unlock(); return nil }
func (t *lockTx) Rollback(ctx context.Context) error        { t.unlock(); return nil }
func (t *lockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockTx) Conn() *pgx.Conn { return nil }

var _ ports.DBTransactor = (*inMemoryTransactor)(nil)
