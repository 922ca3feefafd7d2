package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"estate/internal/config"
	"estate/internal/metrics"
	"estate/internal/models"
	"estate/internal/policy"
	"estate/internal/services"
	"estate/internal/store"
	"estate/internal/websocket"
)

const (
	adminID  = "00000000-0000-0000-0000-00000000000a"
	agentID  = "00000000-0000-0000-0000-0000000000a9"
	ownerID  = "00000000-0000-0000-0000-0000000000b1"
	tenantID = "00000000-0000-0000-0000-0000000000c1"

	propertyID = "11111111-1111-1111-1111-111111111111"
	contractID = "22222222-2222-2222-2222-222222222222"
	paymentID  = "33333333-3333-3333-3333-333333333333"
	requestID  = "44444444-4444-4444-4444-444444444444"
)

// tokenUsers maps the bearer token used in tests to the user it resolves to.
var tokenUsers = map[string]models.User{
	"admin-token":  {ID: adminID, Role: models.RoleAdmin, IsActive: true},
	"agent-token":  {ID: agentID, Role: models.RoleAgent, IsActive: true},
	"owner-token":  {ID: ownerID, Role: models.RoleOwner, IsActive: true},
	"tenant-token": {ID: tenantID, Role: models.RoleTenant, IsActive: true},
}

type stubUserService struct {
	registerFn      func(ctx context.Context, input services.RegisterInput) (models.User, error)
	createFn        func(ctx context.Context, actor policy.Actor, input services.RegisterInput) (models.User, error)
	loginFn         func(ctx context.Context, email, password string) (services.Session, error)
	authenticateFn  func(ctx context.Context, token string) (models.User, error)
	getFn           func(ctx context.Context, actor policy.Actor, userID string) (models.User, error)
	listFn          func(ctx context.Context, actor policy.Actor, filter store.UserFilter) ([]models.User, error)
	updateProfileFn func(ctx context.Context, actor policy.Actor, patch services.ProfilePatch) (models.User, error)
	patchFn         func(ctx context.Context, actor policy.Actor, userID string, patch services.UserPatch) (models.User, error)
}

func (s stubUserService) Register(ctx context.Context, input services.RegisterInput) (models.User, error) {
	if s.registerFn == nil {
		return models.User{}, nil
	}
	return s.registerFn(ctx, input)
}

func (s stubUserService) Create(ctx context.Context, actor policy.Actor, input services.RegisterInput) (models.User, error) {
	if s.createFn == nil {
		return models.User{}, nil
	}
	return s.createFn(ctx, actor, input)
}

func (s stubUserService) Login(ctx context.Context, email, password string) (services.Session, error) {
	if s.loginFn == nil {
		return services.Session{}, nil
	}
	return s.loginFn(ctx, email, password)
}

func (s stubUserService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if s.authenticateFn != nil {
		return s.authenticateFn(ctx, token)
	}
	user, ok := tokenUsers[token]
	if !ok {
		return models.User{}, services.ErrInvalidToken
	}
	return user, nil
}

func (s stubUserService) Get(ctx context.Context, actor policy.Actor, userID string) (models.User, error) {
	if s.getFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getFn(ctx, actor, userID)
}

func (s stubUserService) List(ctx context.Context, actor policy.Actor, filter store.UserFilter) ([]models.User, error) {
	if s.listFn == nil {
		return []models.User{}, nil
	}
	return s.listFn(ctx, actor, filter)
}

func (s stubUserService) UpdateProfile(ctx context.Context, actor policy.Actor, patch services.ProfilePatch) (models.User, error) {
	if s.updateProfileFn == nil {
		return models.User{ID: actor.UserID}, nil
	}
	return s.updateProfileFn(ctx, actor, patch)
}

func (s stubUserService) Patch(ctx context.Context, actor policy.Actor, userID string, patch services.UserPatch) (models.User, error) {
	if s.patchFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.patchFn(ctx, actor, userID, patch)
}

type stubPropertyService struct {
	createFn    func(ctx context.Context, actor policy.Actor, input services.PropertyInput) (models.Property, error)
	getFn       func(ctx context.Context, actor policy.Actor, propertyID string) (models.Property, error)
	listFn      func(ctx context.Context, actor policy.Actor, filter store.PropertyFilter) ([]models.Property, error)
	updateFn    func(ctx context.Context, actor policy.Actor, propertyID string, patch services.PropertyPatch) (models.Property, error)
	setStatusFn func(ctx context.Context, actor policy.Actor, propertyID string, status models.PropertyStatus) (models.Property, error)
	deleteFn    func(ctx context.Context, actor policy.Actor, propertyID string) error
}

func (s stubPropertyService) Create(ctx context.Context, actor policy.Actor, input services.PropertyInput) (models.Property, error) {
	if s.createFn == nil {
		return models.Property{}, nil
	}
	return s.createFn(ctx, actor, input)
}

func (s stubPropertyService) Get(ctx context.Context, actor policy.Actor, propertyID string) (models.Property, error) {
	if s.getFn == nil {
		return models.Property{ID: propertyID}, nil
	}
	return s.getFn(ctx, actor, propertyID)
}

func (s stubPropertyService) List(ctx context.Context, actor policy.Actor, filter store.PropertyFilter) ([]models.Property, error) {
	if s.listFn == nil {
		return []models.Property{}, nil
	}
	return s.listFn(ctx, actor, filter)
}

func (s stubPropertyService) Update(ctx context.Context, actor policy.Actor, propertyID string, patch services.PropertyPatch) (models.Property, error) {
	if s.updateFn == nil {
		return models.Property{ID: propertyID}, nil
	}
	return s.updateFn(ctx, actor, propertyID, patch)
}

func (s stubPropertyService) SetStatus(ctx context.Context, actor policy.Actor, propertyID string, status models.PropertyStatus) (models.Property, error) {
	if s.setStatusFn == nil {
		return models.Property{ID: propertyID, Status: status}, nil
	}
	return s.setStatusFn(ctx, actor, propertyID, status)
}

func (s stubPropertyService) Delete(ctx context.Context, actor policy.Actor, propertyID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, actor, propertyID)
}

type stubContractService struct {
	createFn    func(ctx context.Context, actor policy.Actor, input services.ContractInput) (models.Contract, error)
	getFn       func(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error)
	listFn      func(ctx context.Context, actor policy.Actor, filter store.ContractFilter) ([]models.Contract, error)
	updateFn    func(ctx context.Context, actor policy.Actor, contractID string, patch services.ContractPatch) (models.Contract, error)
	terminateFn func(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error)
	activateFn  func(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error)
	expiringFn  func(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Contract, error)
}

func (s stubContractService) Create(ctx context.Context, actor policy.Actor, input services.ContractInput) (models.Contract, error) {
	if s.createFn == nil {
		return models.Contract{}, nil
	}
	return s.createFn(ctx, actor, input)
}

func (s stubContractService) Get(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error) {
	if s.getFn == nil {
		return models.Contract{ID: contractID}, nil
	}
	return s.getFn(ctx, actor, contractID)
}

func (s stubContractService) List(ctx context.Context, actor policy.Actor, filter store.ContractFilter) ([]models.Contract, error) {
	if s.listFn == nil {
		return []models.Contract{}, nil
	}
	return s.listFn(ctx, actor, filter)
}

func (s stubContractService) Update(ctx context.Context, actor policy.Actor, contractID string, patch services.ContractPatch) (models.Contract, error) {
	if s.updateFn == nil {
		return models.Contract{ID: contractID}, nil
	}
	return s.updateFn(ctx, actor, contractID, patch)
}

func (s stubContractService) Terminate(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error) {
	if s.terminateFn == nil {
		return models.Contract{ID: contractID, Status: models.ContractTerminated}, nil
	}
	return s.terminateFn(ctx, actor, contractID)
}

func (s stubContractService) Activate(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error) {
	if s.activateFn == nil {
		return models.Contract{ID: contractID, Status: models.ContractActive}, nil
	}
	return s.activateFn(ctx, actor, contractID)
}

func (s stubContractService) Expiring(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Contract, error) {
	if s.expiringFn == nil {
		return []models.Contract{}, nil
	}
	return s.expiringFn(ctx, actor, page)
}

type stubPaymentService struct {
	createFn       func(ctx context.Context, actor policy.Actor, input services.PaymentInput) (models.Payment, error)
	getFn          func(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error)
	listFn         func(ctx context.Context, actor policy.Actor, filter store.PaymentFilter) ([]models.Payment, error)
	updateFn       func(ctx context.Context, actor policy.Actor, paymentID string, patch services.PaymentPatch) (models.Payment, error)
	markPaidFn     func(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error)
	overdueFn      func(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Payment, error)
	generateRentFn func(ctx context.Context, actor policy.Actor, contractID string) ([]models.Payment, error)
}

func (s stubPaymentService) Create(ctx context.Context, actor policy.Actor, input services.PaymentInput) (models.Payment, error) {
	if s.createFn == nil {
		return models.Payment{}, nil
	}
	return s.createFn(ctx, actor, input)
}

func (s stubPaymentService) Get(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error) {
	if s.getFn == nil {
		return models.Payment{ID: paymentID}, nil
	}
	return s.getFn(ctx, actor, paymentID)
}

func (s stubPaymentService) List(ctx context.Context, actor policy.Actor, filter store.PaymentFilter) ([]models.Payment, error) {
	if s.listFn == nil {
		return []models.Payment{}, nil
	}
	return s.listFn(ctx, actor, filter)
}

func (s stubPaymentService) Update(ctx context.Context, actor policy.Actor, paymentID string, patch services.PaymentPatch) (models.Payment, error) {
	if s.updateFn == nil {
		return models.Payment{ID: paymentID}, nil
	}
	return s.updateFn(ctx, actor, paymentID, patch)
}

func (s stubPaymentService) MarkPaid(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error) {
	if s.markPaidFn == nil {
		return models.Payment{ID: paymentID, Status: models.PaymentPaid}, nil
	}
	return s.markPaidFn(ctx, actor, paymentID)
}

func (s stubPaymentService) Overdue(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Payment, error) {
	if s.overdueFn == nil {
		return []models.Payment{}, nil
	}
	return s.overdueFn(ctx, actor, page)
}

func (s stubPaymentService) GenerateRent(ctx context.Context, actor policy.Actor, contractID string) ([]models.Payment, error) {
	if s.generateRentFn == nil {
		return []models.Payment{}, nil
	}
	return s.generateRentFn(ctx, actor, contractID)
}

type stubMaintenanceService struct {
	createFn       func(ctx context.Context, actor policy.Actor, input services.MaintenanceInput) (models.MaintenanceRequest, error)
	getFn          func(ctx context.Context, actor policy.Actor, requestID string) (models.MaintenanceRequest, error)
	listFn         func(ctx context.Context, actor policy.Actor, filter store.MaintenanceFilter) ([]models.MaintenanceRequest, error)
	updateFn       func(ctx context.Context, actor policy.Actor, requestID string, patch services.MaintenancePatch) (models.MaintenanceRequest, error)
	completeFn     func(ctx context.Context, actor policy.Actor, requestID string, input services.CompleteInput) (models.MaintenanceRequest, error)
	highPriorityFn func(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error)
	emergencyFn    func(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error)
}

func (s stubMaintenanceService) Create(ctx context.Context, actor policy.Actor, input services.MaintenanceInput) (models.MaintenanceRequest, error) {
	if s.createFn == nil {
		return models.MaintenanceRequest{}, nil
	}
	return s.createFn(ctx, actor, input)
}

func (s stubMaintenanceService) Get(ctx context.Context, actor policy.Actor, requestID string) (models.MaintenanceRequest, error) {
	if s.getFn == nil {
		return models.MaintenanceRequest{ID: requestID}, nil
	}
	return s.getFn(ctx, actor, requestID)
}

func (s stubMaintenanceService) List(ctx context.Context, actor policy.Actor, filter store.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	if s.listFn == nil {
		return []models.MaintenanceRequest{}, nil
	}
	return s.listFn(ctx, actor, filter)
}

func (s stubMaintenanceService) Update(ctx context.Context, actor policy.Actor, requestID string, patch services.MaintenancePatch) (models.MaintenanceRequest, error) {
	if s.updateFn == nil {
		return models.MaintenanceRequest{ID: requestID}, nil
	}
	return s.updateFn(ctx, actor, requestID, patch)
}

func (s stubMaintenanceService) Complete(ctx context.Context, actor policy.Actor, requestID string, input services.CompleteInput) (models.MaintenanceRequest, error) {
	if s.completeFn == nil {
		return models.MaintenanceRequest{ID: requestID, Status: models.MaintenanceCompleted}, nil
	}
	return s.completeFn(ctx, actor, requestID, input)
}

func (s stubMaintenanceService) HighPriority(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error) {
	if s.highPriorityFn == nil {
		return []models.MaintenanceRequest{}, nil
	}
	return s.highPriorityFn(ctx, actor, page)
}

func (s stubMaintenanceService) Emergency(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error) {
	if s.emergencyFn == nil {
		return []models.MaintenanceRequest{}, nil
	}
	return s.emergencyFn(ctx, actor, page)
}

type stubAuditLister struct {
	listFn func(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error)
}

func (s stubAuditLister) List(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return []store.AuditEntry{}, nil
	}
	return s.listFn(ctx, filter)
}

type stubJobRunner struct {
	runNowFn func(ctx context.Context, name string) error
}

func (s stubJobRunner) Names() []string {
	return []string{"contract-expiry", "payment-reminders"}
}

func (s stubJobRunner) RunNow(ctx context.Context, name string) error {
	if s.runNowFn == nil {
		return nil
	}
	return s.runNowFn(ctx, name)
}

// newTestRouter fills any service left nil with a default stub.
func newTestRouter(svc Services) http.Handler {
	if svc.Users == nil {
		svc.Users = stubUserService{}
	}
	if svc.Properties == nil {
		svc.Properties = stubPropertyService{}
	}
	if svc.Contracts == nil {
		svc.Contracts = stubContractService{}
	}
	if svc.Payments == nil {
		svc.Payments = stubPaymentService{}
	}
	if svc.Maintenance == nil {
		svc.Maintenance = stubMaintenanceService{}
	}
	if svc.Audit == nil {
		svc.Audit = stubAuditLister{}
	}
	if svc.Jobs == nil {
		svc.Jobs = stubJobRunner{}
	}
	reg := prometheus.NewRegistry()
	cfg := config.Config{AllowedOrigins: "*"}
	return New(cfg, svc, websocket.NewHub(), metrics.New(reg), reg, nil).Routes()
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func mustNotCall(t *testing.T) {
	t.Helper()
	t.Fatalf("service should not be called")
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}
