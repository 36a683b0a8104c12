package repository

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-demo/matchmaker/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var testCounter int64

// GenerateUniquePrefix returns a prefix that keeps parallel test data apart
func GenerateUniquePrefix() string {
	count := atomic.AddInt64(&testCounter, 1)
	return uuid.New().String()[:8] + "_" + time.Now().Format("150405") + "_" + string(rune(count%26+'a'))
}

// SetupIsolatedTestDB connects to the test database, skipping when unavailable
func SetupIsolatedTestDB(t *testing.T) (*sqlx.DB, string) {
	t.Helper()

	dsn := "host=localhost port=5432 user=postgres password=postgres dbname=matchmaker_test sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("Skipping test, could not connect to test database: %v", err)
	}

	return db, GenerateUniquePrefix()
}

// CleanupTestDataByPrefix removes users created with the prefix
func CleanupTestDataByPrefix(t *testing.T, db *sqlx.DB, prefix string) {
	t.Helper()
	_, _ = db.ExecContext(context.Background(), "DELETE FROM users WHERE username LIKE $1", prefix+"%")
}

// CreateIsolatedTestUser creates a user whose name carries the prefix
func CreateIsolatedTestUser(t *testing.T, db *sqlx.DB, prefix, name string) *model.User {
	t.Helper()

	user := &model.User{Username: prefix + "_" + name}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}
