// Package testutil provides shared helpers for Family Nest tests: an
// in-memory database with every model migrated, a recording mailer, a
// settable clock and polling assertions for asynchronous event delivery.
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an in-memory SQLite database with every model migrated.
// A single connection keeps all statements on the same database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "Failed to migrate models")
	return db
}

// RecordingMailer is a campaign Mailer that keeps every message it is asked
// to send. Addresses listed in FailFor are refused.
type RecordingMailer struct {
	mu      sync.Mutex
	sent    []campaignapp.Message
	failFor map[string]error
}

var _ campaignapp.Mailer = (*RecordingMailer)(nil)

// NewRecordingMailer creates an empty RecordingMailer.
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{failFor: make(map[string]error)}
}

// Send records msg, or returns the configured failure for its recipient.
func (m *RecordingMailer) Send(_ context.Context, msg campaignapp.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[strings.ToLower(msg.To)]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// FailFor makes every send to address return err.
func (m *RecordingMailer) FailFor(address string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor[strings.ToLower(address)] = err
}

// Sent returns a copy of every recorded message.
func (m *RecordingMailer) Sent() []campaignapp.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]campaignapp.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns the recorded messages addressed to address.
func (m *RecordingMailer) SentTo(address string) []campaignapp.Message {
	var out []campaignapp.Message
	for _, msg := range m.Sent() {
		if strings.EqualFold(msg.To, address) {
			out = append(out, msg)
		}
	}
	return out
}

// Count returns the number of recorded messages.
func (m *RecordingMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Clock is a settable wall clock for services that take a now func.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock stopped at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
