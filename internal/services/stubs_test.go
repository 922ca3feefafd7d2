package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"estate/internal/calendar"
	"estate/internal/models"
	"estate/internal/notify"
	"estate/internal/policy"
	"estate/internal/store"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Enqueue(batch ...notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, batch...)
}

type auditCall struct {
	actorID, action, entityType, entityID string
}

type recordingAudit struct {
	calls []auditCall
}

func (a *recordingAudit) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID string, _ any) error {
	a.calls = append(a.calls, auditCall{actorID, action, entityType, entityID})
	return nil
}

type stubLookup struct {
	owners  map[string]string
	active  map[string]bool
	parties map[string]store.ContractParties
}

func (l stubLookup) PropertyOwner(_ context.Context, propertyID string) (string, error) {
	owner, ok := l.owners[propertyID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return owner, nil
}

func (l stubLookup) TenantHasActiveContract(_ context.Context, tenantID, propertyID string) (bool, error) {
	return l.active[tenantID+"/"+propertyID], nil
}

func (l stubLookup) ContractParties(_ context.Context, contractID string) (store.ContractParties, error) {
	parties, ok := l.parties[contractID]
	if !ok {
		return store.ContractParties{}, sql.ErrNoRows
	}
	return parties, nil
}

// 2024-03-15 10:00 in Paris.
var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func testCore(lookup stubLookup) (Core, *recordingNotifier, *recordingAudit) {
	notifier := &recordingNotifier{}
	audit := &recordingAudit{}
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		paris = time.UTC
	}
	return Core{
		TxRunner: fakeTxRunner{},
		Audit:    audit,
		Policy:   policy.New(lookup),
		Clock:    calendar.NewClock(paris, func() time.Time { return fixedNow }),
		Notifier: notifier,
	}, notifier, audit
}

var (
	admin  = policy.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	agent  = policy.Actor{UserID: "agent-1", Role: models.RoleAgent}
	owner  = policy.Actor{UserID: "owner-1", Role: models.RoleOwner}
	tenant = policy.Actor{UserID: "tenant-1", Role: models.RoleTenant}
)

type stubUsers struct {
	mu       sync.Mutex
	byID     map[string]models.User
	created  []models.User
	updated  []models.User
	hasAdmin bool
}

func newStubUsers(users ...models.User) *stubUsers {
	s := &stubUsers{byID: map[string]models.User{}}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *stubUsers) Create(_ context.Context, _ store.Execer, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, user)
	s.byID[user.ID] = user
	return nil
}

func (s *stubUsers) GetByID(_ context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, sql.ErrNoRows
}

func (s *stubUsers) List(context.Context, store.UserFilter) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubUsers) Update(_ context.Context, _ store.Execer, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[user.ID]; !ok {
		return sql.ErrNoRows
	}
	s.updated = append(s.updated, user)
	s.byID[user.ID] = user
	return nil
}

func (s *stubUsers) HasAnyAdmin(context.Context, store.Getter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasAdmin {
		return true, nil
	}
	for _, u := range s.byID {
		if u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// memProperties keeps properties in memory and counts contracts per property.
type memProperties struct {
	byID      map[string]models.Property
	contracts map[string]int
	deleted   []string
	listed    store.PropertyFilter
}

func newMemProperties(props ...models.Property) *memProperties {
	m := &memProperties{byID: map[string]models.Property{}, contracts: map[string]int{}}
	for _, p := range props {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProperties) Create(_ context.Context, _ store.Execer, p models.Property) error {
	m.byID[p.ID] = p
	return nil
}

func (m *memProperties) GetByID(_ context.Context, id string) (models.Property, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Property{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memProperties) GetForUpdate(ctx context.Context, _ store.Getter, id string) (models.Property, error) {
	return m.GetByID(ctx, id)
}

func (m *memProperties) List(_ context.Context, filter store.PropertyFilter) ([]models.Property, error) {
	m.listed = filter
	return []models.Property{}, nil
}

func (m *memProperties) Update(_ context.Context, _ store.Execer, p models.Property) error {
	current, ok := m.byID[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = current.Status
	m.byID[p.ID] = p
	return nil
}

func (m *memProperties) SetStatus(_ context.Context, _ store.Execer, id string, status models.PropertyStatus) error {
	p, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = status
	m.byID[id] = p
	return nil
}

func (m *memProperties) CountContracts(_ context.Context, _ store.Getter, id string) (int, error) {
	return m.contracts[id], nil
}

func (m *memProperties) Delete(_ context.Context, _ store.Execer, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type memContracts struct {
	byID     map[string]models.Contract
	listed   store.ContractFilter
	lapsed   []string
	expiring struct{ from, to models.Date }
}

func newMemContracts(contracts ...models.Contract) *memContracts {
	m := &memContracts{byID: map[string]models.Contract{}}
	for _, c := range contracts {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memContracts) Create(_ context.Context, _ store.Execer, c models.Contract) error {
	m.byID[c.ID] = c
	return nil
}

func (m *memContracts) GetByID(_ context.Context, id string) (models.Contract, error) {
	c, ok := m.byID[id]
	if !ok {
		return models.Contract{}, sql.ErrNoRows
	}
	return c, nil
}

func (m *memContracts) GetForUpdate(ctx context.Context, _ store.Getter, id string) (models.Contract, error) {
	return m.GetByID(ctx, id)
}

func (m *memContracts) List(_ context.Context, filter store.ContractFilter) ([]models.Contract, error) {
	m.listed = filter
	out := []models.Contract{}
	for _, c := range m.byID {
		if filter.Scope.TenantID != "" && c.TenantID != filter.Scope.TenantID {
			continue
		}
		if filter.TenantID != nil && c.TenantID != *filter.TenantID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memContracts) Update(_ context.Context, _ store.Execer, c models.Contract) error {
	if _, ok := m.byID[c.ID]; !ok {
		return sql.ErrNoRows
	}
	m.byID[c.ID] = c
	return nil
}

func (m *memContracts) CountLive(_ context.Context, _ store.Getter, propertyID string) (int, error) {
	n := 0
	for _, c := range m.byID {
		if c.PropertyID == propertyID && c.Status.Live() {
			n++
		}
	}
	return n, nil
}

func (m *memContracts) ListExpiring(_ context.Context, from, to models.Date, _ store.Scope, _ store.Page) ([]models.Contract, error) {
	m.expiring.from, m.expiring.to = from, to
	return []models.Contract{}, nil
}

func (m *memContracts) ListLapsed(context.Context, models.Date) ([]string, error) {
	return m.lapsed, nil
}

func (m *memContracts) count(propertyID string, status models.ContractStatus) int {
	n := 0
	for _, c := range m.byID {
		if c.PropertyID == propertyID && c.Status == status {
			n++
		}
	}
	return n
}

type memPayments struct {
	byID    map[string]models.Payment
	batches [][]models.Payment
	overdue models.Date
}

func newMemPayments(payments ...models.Payment) *memPayments {
	m := &memPayments{byID: map[string]models.Payment{}}
	for _, p := range payments {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memPayments) Create(ctx context.Context, tx store.Execer, p models.Payment) error {
	return m.CreateBatch(ctx, tx, []models.Payment{p})
}

func (m *memPayments) CreateBatch(_ context.Context, _ store.Execer, payments []models.Payment) error {
	m.batches = append(m.batches, payments)
	for _, p := range payments {
		m.byID[p.ID] = p
	}
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id string) (models.Payment, error) {
	p, ok := m.byID[id]
	if !ok {
		return models.Payment{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memPayments) GetForUpdate(ctx context.Context, _ store.Getter, id string) (models.Payment, error) {
	return m.GetByID(ctx, id)
}

func (m *memPayments) List(context.Context, store.PaymentFilter) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

func (m *memPayments) ListOverdue(_ context.Context, day models.Date, _ store.Scope, _ store.Page) ([]models.Payment, error) {
	m.overdue = day
	return []models.Payment{}, nil
}

func (m *memPayments) Update(_ context.Context, _ store.Execer, p models.Payment) error {
	if _, ok := m.byID[p.ID]; !ok {
		return sql.ErrNoRows
	}
	m.byID[p.ID] = p
	return nil
}

func (m *memPayments) RentDueDates(_ context.Context, _ store.Selecter, contractID string) ([]models.Date, error) {
	var dates []models.Date
	for _, p := range m.byID {
		if p.ContractID == contractID && p.Type == models.PaymentRent {
			dates = append(dates, p.DueDate)
		}
	}
	return dates, nil
}

type memMaintenance struct {
	byID   map[string]models.MaintenanceRequest
	listed store.MaintenanceFilter
}

func newMemMaintenance(requests ...models.MaintenanceRequest) *memMaintenance {
	m := &memMaintenance{byID: map[string]models.MaintenanceRequest{}}
	for _, r := range requests {
		m.byID[r.ID] = r
	}
	return m
}

func (m *memMaintenance) Create(_ context.Context, _ store.Execer, r models.MaintenanceRequest) error {
	m.byID[r.ID] = r
	return nil
}

func (m *memMaintenance) GetByID(_ context.Context, id string) (models.MaintenanceRequest, error) {
	r, ok := m.byID[id]
	if !ok {
		return models.MaintenanceRequest{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memMaintenance) GetForUpdate(ctx context.Context, _ store.Getter, id string) (models.MaintenanceRequest, error) {
	return m.GetByID(ctx, id)
}

// List applies the high-priority and emergency filters so listings can be
// checked end to end.
func (m *memMaintenance) List(_ context.Context, filter store.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	m.listed = filter
	out := []models.MaintenanceRequest{}
	for _, r := range m.byID {
		if filter.MinPriority != nil && r.Priority < *filter.MinPriority {
			continue
		}
		if filter.Type != nil && r.Type != *filter.Type {
			continue
		}
		if filter.Open && r.Status == models.MaintenanceCompleted {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memMaintenance) Update(_ context.Context, _ store.Execer, r models.MaintenanceRequest) error {
	if _, ok := m.byID[r.ID]; !ok {
		return sql.ErrNoRows
	}
	m.byID[r.ID] = r
	return nil
}
