package service

import (
	"context"
	"sync"
	"time"

	"github.com/digkill/gddforge/internal/models"
)

// memAccounts mimics the store's single-statement semantics: each method is
// atomic on its own, nothing spans calls.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	inserts  int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*models.Account{}}
}

func (m *memAccounts) Get(_ context.Context, userID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (m *memAccounts) CreateIfAbsent(_ context.Context, userID, email, displayName string, credits int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; ok {
		return false, nil
	}
	m.inserts++
	m.accounts[userID] = &models.Account{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		Credits:     credits,
		CreatedAt:   time.Now(),
	}
	return true, nil
}

func (m *memAccounts) ConsumeCredits(_ context.Context, userID string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok || acc.Credits < amount {
		return false, nil
	}
	acc.Credits -= amount
	acc.TotalCreditsUsed += amount
	now := time.Now()
	acc.LastUsedAt = &now
	return true, nil
}

func (m *memAccounts) AddCredits(_ context.Context, userID string, amount int, label string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return false, nil
	}
	acc.Credits += amount
	acc.TotalCreditsPurchased += amount
	now := time.Now()
	acc.LastPurchaseAt = &now
	acc.LastPackage = label
	return true, nil
}

func (m *memAccounts) set(userID string, credits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &models.Account{UserID: userID, Credits: credits}
}

func (m *memAccounts) credits(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[userID]; ok {
		return acc.Credits
	}
	return 0
}

// memOrders is a processed-order set; memTx stages writes so a failed
// transaction leaves no marker.
type memOrders struct {
	mu     sync.Mutex
	orders map[string]models.ProcessedOrder
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]models.ProcessedOrder{}}
}

func (m *memOrders) Record(_ context.Context, order models.ProcessedOrder) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.OrderID]; ok {
		return false, nil
	}
	m.orders[order.OrderID] = order
	return true, nil
}

func (m *memOrders) ListRecent(_ context.Context, limit int) ([]models.ProcessedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProcessedOrder
	for _, o := range m.orders {
		if len(out) == limit {
			break
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *memOrders) has(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.orders[orderID]
	return ok
}

// memTx serializes transactions and undoes the order marker on failure.
type memTx struct {
	mu     sync.Mutex
	orders *memOrders
}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := map[string]bool{}
	t.orders.mu.Lock()
	for id := range t.orders.orders {
		before[id] = true
	}
	t.orders.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.orders.mu.Lock()
		for id := range t.orders.orders {
			if !before[id] {
				delete(t.orders.orders, id)
			}
		}
		t.orders.mu.Unlock()
		return err
	}
	return nil
}
