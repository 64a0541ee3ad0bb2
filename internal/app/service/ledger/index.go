package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/entitlements/internal/models"
	"github.com/fatflowers/entitlements/pkg/tool"
	"github.com/fatflowers/entitlements/pkg/types"
)

// Index remembers which store subscriptions belong to which user.
type Index interface {
	// Remember upserts by (provider, subscription key).
	Remember(ctx context.Context, row *models.LedgerTransaction) error
	// ListByUser returns the user's unrevoked subscriptions with one provider.
	ListByUser(ctx context.Context, userID string, provider types.PaymentProvider) ([]*models.LedgerTransaction, error)
	// FindByKey returns nil when the key is unknown.
	FindByKey(ctx context.Context, provider types.PaymentProvider, key string) (*models.LedgerTransaction, error)
	MarkRevoked(ctx context.Context, provider types.PaymentProvider, key string, at time.Time) error
}

type GormIndex struct {
	db *gorm.DB
}

func NewGormIndex(db *gorm.DB) *GormIndex {
	return &GormIndex{db: db}
}

func (i *GormIndex) Remember(ctx context.Context, row *models.LedgerTransaction) error {
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	err := i.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_id"}, {Name: "subscription_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "latest_transaction_id", "product_id", "base_plan_id",
			"purchase_at", "expire_at", "revoked_at", "extra", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to remember ledger transaction %s: %w", row.SubscriptionKey, err)
	}
	return nil
}

func (i *GormIndex) ListByUser(ctx context.Context, userID string, provider types.PaymentProvider) ([]*models.LedgerTransaction, error) {
	var rows []*models.LedgerTransaction
	err := i.db.WithContext(ctx).
		Where("user_id = ? AND provider_id = ? AND revoked_at IS NULL", userID, provider).
		Order("purchase_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	return rows, nil
}

func (i *GormIndex) FindByKey(ctx context.Context, provider types.PaymentProvider, key string) (*models.LedgerTransaction, error) {
	var row models.LedgerTransaction
	err := i.db.WithContext(ctx).Where("provider_id = ? AND subscription_key = ?", provider, key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ledger transaction: %w", err)
	}
	return &row, nil
}

func (i *GormIndex) MarkRevoked(ctx context.Context, provider types.PaymentProvider, key string, at time.Time) error {
	err := i.db.WithContext(ctx).Model(&models.LedgerTransaction{}).
		Where("provider_id = ? AND subscription_key = ?", provider, key).
		Update("revoked_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to revoke ledger transaction: %w", err)
	}
	return nil
}

// filtersAnd combines several CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse struct {
	Items []*models.LedgerTransaction `json:"items"`
	Total int64                       `json:"total"`
}

// Scan is the paginated admin listing of ledger transactions.
func (i *GormIndex) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := i.db.WithContext(ctx).Model(&models.LedgerTransaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count ledger transactions: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}

	var rows []*models.LedgerTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	return &ScanResponse{Items: rows, Total: total}, nil
}

// MemoryIndex is an in-process Index for single-node runs and tests.
type MemoryIndex struct {
	mu   sync.Mutex
	rows map[string]*models.LedgerTransaction
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{rows: make(map[string]*models.LedgerTransaction)}
}

func memoryKey(provider types.PaymentProvider, key string) string {
	return string(provider) + "|" + key
}

func (m *MemoryIndex) Remember(_ context.Context, row *models.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *row
	if prev, ok := m.rows[memoryKey(row.ProviderID, row.SubscriptionKey)]; ok {
		cp.ID = prev.ID
	}
	if cp.ID == "" {
		cp.ID = tool.GenerateUUIDV7()
	}
	m.rows[memoryKey(row.ProviderID, row.SubscriptionKey)] = &cp
	return nil
}

func (m *MemoryIndex) ListByUser(_ context.Context, userID string, provider types.PaymentProvider) ([]*models.LedgerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerTransaction
	for _, row := range m.rows {
		if row.UserID == userID && row.ProviderID == provider && !row.Revoked() {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseAt.After(out[j].PurchaseAt) })
	return out, nil
}

func (m *MemoryIndex) FindByKey(_ context.Context, provider types.PaymentProvider, key string) (*models.LedgerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[memoryKey(provider, key)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *MemoryIndex) MarkRevoked(_ context.Context, provider types.PaymentProvider, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[memoryKey(provider, key)]; ok {
		row.RevokedAt = &at
	}
	return nil
}
