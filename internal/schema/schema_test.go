package schema

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestAll(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}

	if len(all) != len(tables) {
		t.Fatalf("expected %d tables, got %d", len(tables), len(all))
	}

	for i, tbl := range all {
		if tbl.DDL == "" {
			t.Errorf("table %s DDL is empty", tbl.Name)
		}
		if !strings.Contains(tbl.DDL, "CREATE TABLE IF NOT EXISTS "+tbl.Name) {
			t.Errorf("table %s DDL doesn't create %s", tbl.Name, tbl.Name)
		}
		if i > 0 && all[i-1].Order > tbl.Order {
			t.Errorf("tables out of order at %d", i)
		}
	}
}

func TestGet(t *testing.T) {
	t.Run("existing table", func(t *testing.T) {
		tbl, err := Get("replace_rules")
		if err != nil {
			t.Fatalf("Get(replace_rules) error = %v", err)
		}
		if tbl.Name != "replace_rules" {
			t.Errorf("expected name replace_rules, got %s", tbl.Name)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		if _, err := Get("nope"); err == nil {
			t.Error("expected error for missing table")
		}
	})
}

func TestInitialize(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Initialize(ctx, db, nil); err != nil {
			t.Fatalf("Initialize pass %d: %v", i, err)
		}
	}

	var n int
	err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('book_sources','replace_rules','probe_metrics')`).Scan(&n)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 tables, got %d", n)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		payload string
		wantErr bool
	}{
		{"source object", BookSourceDoc, `{"bookSourceUrl":"https://a","bookSourceName":"A","bookSourceGroup":"x,y"}`, false},
		{"source array", BookSourceDoc, `[{"bookSourceUrl":"https://a","bookSourceName":"A"},{"bookSourceUrl":"https://b","bookSourceName":"B","tags":["t"]}]`, false},
		{"source missing url", BookSourceDoc, `{"bookSourceName":"A"}`, true},
		{"source bad rule", BookSourceDoc, `{"bookSourceUrl":"u","bookSourceName":"A","ruleToc":{"chapterList":5}}`, true},
		{"rule ok", ReplaceRuleDoc, `{"pattern":"ad","replacement":"","isRegex":false}`, false},
		{"rule empty pattern", ReplaceRuleDoc, `[{"pattern":"ok"},{"pattern":""}]`, true},
		{"not json", ReplaceRuleDoc, `{`, true},
		{"unknown doc", "nope", `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
