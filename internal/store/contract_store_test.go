package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"estate/internal/models"
)

func TestContractStoreCreate(t *testing.T) {
	db, mock := newMockDB(t)
	end := models.NewDate(2024, time.December, 31)
	day := 31
	contract := models.Contract{
		ID:         "contract-1",
		Type:       models.ContractRental,
		Status:     models.ContractActive,
		StartDate:  models.NewDate(2024, time.January, 1),
		EndDate:    &end,
		RentAmount: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		PaymentDay: &day,
		PropertyID: "property-1",
		TenantID:   "tenant-1",
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contracts")).
		WithArgs("contract-1", "rental", "active", "2024-01-01", "2024-12-31", "1000", nil, 31, nil, nil, "property-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewContractStore(db).Create(context.Background(), db, contract); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContractStoreGetByIDScansDates(t *testing.T) {
	db, mock := newMockDB(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM contracts c WHERE c.id = $1")).
		WithArgs("contract-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "start_date", "end_date", "payment_day"}).
			AddRow("contract-1", "active", start, nil, 31))

	contract, err := NewContractStore(db).GetByID(context.Background(), "contract-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contract.StartDate.String() != "2024-01-01" || contract.EndDate != nil {
		t.Fatalf("unexpected dates: %s %v", contract.StartDate, contract.EndDate)
	}
	if contract.PaymentDay == nil || *contract.PaymentDay != 31 {
		t.Fatalf("unexpected payment day: %v", contract.PaymentDay)
	}
}

func TestContractStoreListForcesTenantScope(t *testing.T) {
	db, mock := newMockDB(t)
	requested := "tenant-2"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.tenant_id = $1 AND c.tenant_id = $2 ORDER BY")).
		WithArgs("tenant-2", "tenant-1", 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	contracts, err := NewContractStore(db).List(context.Background(), ContractFilter{
		TenantID: &requested,
		Scope:    Scope{TenantID: "tenant-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contracts) != 0 {
		t.Fatalf("expected no contracts, got %#v", contracts)
	}
}

func TestContractStoreCountLive(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'active')")).
		WithArgs("property-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := NewContractStore(db).CountLive(context.Background(), db, "property-1")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 live contract, got %d %v", count, err)
	}
}

func TestContractStoreListExpiringWindow(t *testing.T) {
	db, mock := newMockDB(t)
	from := models.NewDate(2024, time.January, 31)
	to := from.AddDays(30)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.status = 'active' AND c.end_date BETWEEN $1 AND $2 AND c.property_id IN (SELECT id FROM properties WHERE owner_id = $3)")).
		WithArgs("2024-01-31", "2024-03-01", "owner-1", 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("contract-1"))

	contracts, err := NewContractStore(db).ListExpiring(context.Background(), from, to, Scope{OwnerID: "owner-1"}, Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contracts) != 1 {
		t.Fatalf("unexpected contracts: %#v", contracts)
	}
}

func TestContractStoreListLapsed(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'active' AND end_date < $1")).
		WithArgs("2024-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("contract-1").AddRow("contract-2"))

	ids, err := NewContractStore(db).ListLapsed(context.Background(), models.NewDate(2024, time.June, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[1] != "contract-2" {
		t.Fatalf("unexpected ids: %#v", ids)
	}
}
