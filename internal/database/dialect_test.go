package database

import (
	"strings"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "sqlite3" {
			t.Errorf("DriverName() = %v, want sqlite3", got)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("RewriteQuery keeps question marks", func(t *testing.T) {
		q := "SELECT * FROM users WHERE id = ? AND role = ?"
		if got := dialect.RewriteQuery(q); got != q {
			t.Errorf("RewriteQuery() = %v, want %v", got, q)
		}
	})

	t.Run("DSN adds pragmas", func(t *testing.T) {
		dsn := dialect.DSN(DialectConfig{Path: "/tmp/app.db"})
		for _, want := range []string{"file:/tmp/app.db", "_foreign_keys=on", "_busy_timeout=5000"} {
			if !strings.Contains(dsn, want) {
				t.Errorf("DSN() = %v, missing %v", dsn, want)
			}
		}
	})

	t.Run("DSN with query string passes through", func(t *testing.T) {
		in := "file::memory:?cache=shared"
		if got := dialect.DSN(DialectConfig{Path: in}); got != in {
			t.Errorf("DSN() = %v, want %v", got, in)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if got := dialect.MigrationsSubdir(); got != "sqlite" {
			t.Errorf("MigrationsSubdir() = %v, want sqlite", got)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "postgres" {
			t.Errorf("DriverName() = %v, want postgres", got)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("RewriteQuery numbers placeholders", func(t *testing.T) {
		got := dialect.RewriteQuery("UPDATE user_progress SET document = ? WHERE user_id = ? AND version = ?")
		want := "UPDATE user_progress SET document = $1 WHERE user_id = $2 AND version = $3"
		if got != want {
			t.Errorf("RewriteQuery() = %v, want %v", got, want)
		}
	})

	t.Run("DSN is the URL", func(t *testing.T) {
		url := "postgres://u:p@localhost/learnstack?sslmode=disable"
		if got := dialect.DSN(DialectConfig{URL: url}); got != url {
			t.Errorf("DSN() = %v, want %v", got, url)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if got := dialect.MigrationsSubdir(); got != "postgres" {
			t.Errorf("MigrationsSubdir() = %v, want postgres", got)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		if got := dialect.DriverName(); got != "mysql" {
			t.Errorf("DriverName() = %v, want mysql", got)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("DSN forces parseTime", func(t *testing.T) {
		dsn := dialect.DSN(DialectConfig{URL: "user:pass@tcp(localhost:3306)/learnstack"})
		if !strings.Contains(dsn, "parseTime=true") {
			t.Errorf("DSN() = %v, want parseTime=true", dsn)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if got := dialect.MigrationsSubdir(); got != "mysql" {
			t.Errorf("MigrationsSubdir() = %v, want mysql", got)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (
    id INTEGER
);

-- second
CREATE INDEX idx_a ON a(id);
INSERT INTO a (id) VALUES (1)`

	stmts := SplitStatements(content)
	if len(stmts) != 3 {
		t.Fatalf("SplitStatements() returned %d statements, want 3: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") || strings.HasSuffix(stmts[0], ";") {
		t.Errorf("first statement = %q", stmts[0])
	}
	if stmts[2] != "INSERT INTO a (id) VALUES (1)" {
		t.Errorf("trailing statement = %q", stmts[2])
	}
}
