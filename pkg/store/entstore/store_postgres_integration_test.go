//go:build integration

package entstore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresAppendConflictFlow(t *testing.T) {
	ctx := context.Background()
	pg, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithDatabase("slate"),
		tcpostgres.WithUsername("slate"),
		tcpostgres.WithPassword("slate"),
		tcpostgres.WithSQLDriver("pgx"),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	st, err := Open(ctx, fmt.Sprintf("postgres://%s", dsn))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	payload, _ := json.Marshal(map[string]any{"title": "Chemistry"})
	e1, conflicted, err := st.AppendEvent(ctx, rec("pe1", "wspg", "WORKSPACE_CREATED", payload), 0)
	if err != nil || conflicted {
		t.Fatalf("conflicted=%v err=%v", conflicted, err)
	}
	if e1.Version != 1 {
		t.Fatalf("version=%d want 1", e1.Version)
	}

	// Stale base must conflict without writing.
	if _, conflicted, err = st.AppendEvent(ctx, rec("pe2", "wspg", "ITEM_CREATED", nil), 0); err != nil {
		t.Fatal(err)
	} else if !conflicted {
		t.Fatal("want conflict on stale base")
	}

	got, err := st.ListEvents(ctx, "wspg", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len=%d want 1", len(got))
	}

	n, err := st.DeleteAfter(ctx, "wspg", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("deleted=%d want 1", n)
	}
}
