package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestAuditStoreLog(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO audit_logs") {
				t.Fatalf("unexpected query: %s", query)
			}
			actor, ok := args[0].(*string)
			if len(args) != 5 || !ok || *actor != "actor-1" || args[1] != "contract.terminate" {
				t.Fatalf("unexpected args: %#v", args)
			}
			if args[4] != `{"property_id":"property-1"}` {
				t.Fatalf("unexpected data: %#v", args[4])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAuditStore(stubDB{})
	data := map[string]string{"property_id": "property-1"}
	if err := store.Log(ctx, execer, "actor-1", "contract.terminate", "contract", "contract-1", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditStoreLogSystemActor(t *testing.T) {
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if actor, _ := args[0].(*string); actor != nil {
				t.Fatalf("expected nil actor, got %v", *actor)
			}
			return stubResult{rows: 1}, nil
		},
	}
	if err := NewAuditStore(stubDB{}).Log(context.Background(), execer, "", "contract.expire", "contract", "c-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditStoreList(t *testing.T) {
	ctx := context.Background()
	entityType := "contract"
	store := NewAuditStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM audit_logs") || !strings.Contains(query, "WHERE entity_type = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != "contract" || args[1] != 10 || args[2] != 5 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]AuditEntry) = []AuditEntry{{ID: "log-1"}}
			return nil
		},
	})
	rows, err := store.List(ctx, AuditFilter{EntityType: &entityType, Page: Page{Skip: 5, Limit: 10}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "log-1" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}
