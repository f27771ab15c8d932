// Package repotest provides in-memory repositories for tests of packages
// that sit above the database layer.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	invoiceRepo "marketplace/database/repository/invoice"
	orderRepo "marketplace/database/repository/order"
	pipelineRepo "marketplace/database/repository/pipeline"
	productRepo "marketplace/database/repository/product"
	userRepo "marketplace/database/repository/user"
	"marketplace/models"
)

// Store is shared state behind the in-memory repositories so that an order
// create can write its chain record atomically, as the Mongo implementation does.
type Store struct {
	mu       sync.Mutex
	products map[string]models.Product
	orders   map[string]models.Order
	invoices map[string]models.Invoice
	chains   map[string]models.OrderChain
	users    map[string]models.User
}

func NewStore() *Store {
	return &Store{
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
		invoices: make(map[string]models.Invoice),
		chains:   make(map[string]models.OrderChain),
		users:    make(map[string]models.User),
	}
}

// PutProduct seeds the catalog.
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutUser seeds an account.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutChain stores a chain record without an order.
func (s *Store) PutChain(c models.OrderChain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[c.OrderID] = c
}

// MockProductRepo implements productRepo.ProductRepository.
type MockProductRepo struct {
	Store    *Store
	GetErr   error
	LookedUp [][]string // ids of every GetByIDs call
}

func (m *MockProductRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.Product, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	m.LookedUp = append(m.LookedUp, append([]string(nil), ids...))
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	result := make(map[string]models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (m *MockProductRepo) Create(_ context.Context, product *models.Product) error {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	m.Store.products[product.ID] = *product
	return nil
}

// MockOrderRepo implements orderRepo.OrderRepository.
type MockOrderRepo struct {
	Store     *Store
	CreateErr error
	GetErr    error
}

func (m *MockOrderRepo) CreateWithItems(_ context.Context, order *models.Order, chain *models.OrderChain) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *order
	stored.Items = append([]models.LineItem(nil), order.Items...)
	s.orders[order.ID] = stored
	if chain != nil {
		s.chains[chain.OrderID] = *chain
	}
	return nil
}

func (m *MockOrderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, orderRepo.ErrOrderNotFound
	}
	order.Items = append([]models.LineItem(nil), order.Items...)
	return &order, nil
}

func (m *MockOrderRepo) ListByCustomer(_ context.Context, customerID string, filter orderRepo.ListFilter) ([]models.Order, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := []models.Order{}
	for _, o := range s.orders {
		if o.CustomerID != customerID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		o.Items = nil
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

func (m *MockOrderRepo) ListBySeller(_ context.Context, sellerID string, filter orderRepo.ListFilter) ([]models.SellerOrder, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.SellerOrder{}
	for _, o := range s.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		so := models.SellerOrder{OrderID: o.ID, CustomerID: o.CustomerID, Status: o.Status, CreatedAt: o.CreatedAt}
		found := false
		for _, item := range o.Items {
			if item.SellerID == sellerID {
				found = true
				so.SellerTotalAmount = so.SellerTotalAmount.Add(item.Total())
			}
		}
		if found {
			result = append(result, so)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *MockOrderRepo) Delete(_ context.Context, id string) error {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return orderRepo.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

// MockInvoiceRepo implements invoiceRepo.InvoiceRepository.
type MockInvoiceRepo struct {
	Store     *Store
	CreateErr error
}

func (m *MockInvoiceRepo) CreateIfAbsent(_ context.Context, inv *models.Invoice) (bool, error) {
	if m.CreateErr != nil {
		return false, m.CreateErr
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.OrderID]; ok {
		return false, nil
	}
	s.invoices[inv.OrderID] = *inv
	return true, nil
}

func (m *MockInvoiceRepo) GetByOrderID(_ context.Context, orderID string) (*models.Invoice, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[orderID]
	if !ok {
		return nil, invoiceRepo.ErrInvoiceNotFound
	}
	return &inv, nil
}

// MockChainRepo implements pipelineRepo.ChainRepository.
type MockChainRepo struct {
	Store *Store
	Now   func() time.Time
}

func (m *MockChainRepo) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *MockChainRepo) Get(_ context.Context, orderID string) (*models.OrderChain, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.chains[orderID]
	if !ok {
		return nil, pipelineRepo.ErrChainNotFound
	}
	return &chain, nil
}

func (m *MockChainRepo) update(orderID string, stage models.Stage, fn func(*models.StageState)) error {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.chains[orderID]
	if !ok {
		return pipelineRepo.ErrChainNotFound
	}
	now := m.now()
	state := &chain.Stages.Invoice
	if stage == models.StageEmail {
		state = &chain.Stages.Email
	}
	fn(state)
	state.UpdatedAt = now
	chain.UpdatedAt = now
	s.chains[orderID] = chain
	return nil
}

func (m *MockChainRepo) StartAttempt(_ context.Context, orderID string, stage models.Stage) error {
	return m.update(orderID, stage, func(st *models.StageState) {
		st.Status = models.StageRunning
		st.Attempts++
	})
}

func (m *MockChainRepo) Finish(_ context.Context, orderID string, stage models.Stage, status models.StageStatus, lastErr string) error {
	return m.update(orderID, stage, func(st *models.StageState) {
		st.Status = status
		st.LastError = lastErr
	})
}

func (m *MockChainRepo) Touch(_ context.Context, orderID string) error {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.chains[orderID]
	if !ok {
		return pipelineRepo.ErrChainNotFound
	}
	chain.UpdatedAt = m.now()
	s.chains[orderID] = chain
	return nil
}

func (m *MockChainRepo) ListStalled(_ context.Context, cutoff time.Time, limit int64) ([]models.OrderChain, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	var stalled []models.OrderChain
	for _, c := range s.chains {
		if !c.UpdatedAt.Before(cutoff) {
			continue
		}
		inv, email := c.Stages.Invoice.Status, c.Stages.Email.Status
		if inv == models.StagePending || (inv == models.StageSucceeded && email == models.StagePending) {
			stalled = append(stalled, c)
		}
	}
	sort.Slice(stalled, func(i, j int) bool { return stalled[i].UpdatedAt.Before(stalled[j].UpdatedAt) })
	if limit > 0 && int64(len(stalled)) > limit {
		stalled = stalled[:limit]
	}
	return stalled, nil
}

// MockUserRepo implements userRepo.UserRepository.
type MockUserRepo struct {
	Store *Store
	Calls int
}

func (m *MockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Calls++
	user, ok := s.users[id]
	if !ok {
		return nil, userRepo.ErrUserNotFound
	}
	return &user, nil
}

func (m *MockUserRepo) Create(_ context.Context, user *models.User) error {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	m.Store.users[user.ID] = *user
	return nil
}

// Repos bundles one of each in-memory repository over a fresh Store.
type Repos struct {
	Store    *Store
	Products *MockProductRepo
	Orders   *MockOrderRepo
	Invoices *MockInvoiceRepo
	Chains   *MockChainRepo
	Users    *MockUserRepo
}

func NewRepos() *Repos {
	s := NewStore()
	return &Repos{
		Store:    s,
		Products: &MockProductRepo{Store: s},
		Orders:   &MockOrderRepo{Store: s},
		Invoices: &MockInvoiceRepo{Store: s},
		Chains:   &MockChainRepo{Store: s},
		Users:    &MockUserRepo{Store: s},
	}
}

var (
	_ productRepo.ProductRepository = (*MockProductRepo)(nil)
	_ orderRepo.OrderRepository     = (*MockOrderRepo)(nil)
	_ invoiceRepo.InvoiceRepository = (*MockInvoiceRepo)(nil)
	_ pipelineRepo.ChainRepository  = (*MockChainRepo)(nil)
	_ userRepo.UserRepository       = (*MockUserRepo)(nil)
)
