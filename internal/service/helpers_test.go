package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"learnstack/internal/cache"
	"learnstack/internal/catalog"
	"learnstack/internal/daily"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
	"learnstack/internal/security"
	"learnstack/migrations"
)

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *fakeMailer) record(to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return m.err
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, to, _, code string, _ time.Duration) error {
	return m.record(to, code)
}

func (m *fakeMailer) SendPasswordResetCode(_ context.Context, to, _, code string, _ time.Duration) error {
	return m.record(to, code)
}

func (m *fakeMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

// stubExecutor echoes a fixed answer per stdin
type stubExecutor struct {
	mu      sync.Mutex
	answers map[string]string
	err     error
	calls   int
}

func (e *stubExecutor) Run(_ context.Context, _, stdin, _, _ string) (daily.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return daily.ExecutionResult{}, e.err
	}
	return daily.ExecutionResult{Stdout: e.answers[stdin]}, nil
}

type fixture struct {
	db       *database.DB
	store    *cache.MemoryStore
	catalog  *CatalogService
	boards   *LeaderboardService
	progress *ProgressService
	admin    *AdminService
	auth     *AuthService
	daily    *DailyService
	doubts   *DoubtService
	backup   *BackupService
	awards   *AchievementService
	quizzes  *QuizService
	mailer   *fakeMailer
	exec     *stubExecutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background(), migrations.FS)
	require.NoError(t, err)

	log := logger.Nop()
	f := &fixture{
		db:     db,
		store:  cache.NewMemoryStore(),
		mailer: &fakeMailer{},
		exec:   &stubExecutor{answers: map[string]string{}},
	}
	f.catalog = NewCatalogService(log, db, f.store, time.Minute)
	f.boards = NewLeaderboardService(log, db, f.store, 15*time.Minute)
	f.awards = NewAchievementService(log, db, f.store, time.Minute)
	f.progress = NewProgressService(log, db, f.catalog, f.boards, f.awards)
	f.admin = NewAdminService(log, db, f.progress, f.catalog)
	f.auth = NewAuthService(log, db, f.progress, f.mailer, security.NewTokenIssuer("test-secret", time.Hour), 5*time.Minute)
	f.daily = NewDailyService(log, db, daily.NewTracker(f.exec, time.Second), f.progress)
	f.doubts = NewDoubtService(log, db)
	f.quizzes = NewQuizService(log, db)
	f.backup = NewBackupService(log, db, f.catalog)

	_, err = f.catalog.Import(context.Background(), testCatalog())
	require.NoError(t, err)
	return f
}

// testCatalog is arrays -> searching -> sorting, each gated on the previous
func testCatalog() *catalog.Document {
	return &catalog.Document{Topics: []catalog.TopicSpec{
		{
			ID: "arrays", Name: "Arrays", Order: 1,
			Algorithms: []catalog.AlgorithmSpec{
				{ID: "traversal", Name: "Traversal", Points: 10},
				{ID: "insertion", Name: "Insertion", Points: 10},
			},
		},
		{
			ID: "searching", Name: "Searching", Order: 2, Prerequisites: []string{"arrays"},
			Algorithms: []catalog.AlgorithmSpec{
				{ID: "linearSearch", Name: "Linear Search", Points: 10},
				{ID: "binarySearch", Name: "Binary Search", Points: 20},
			},
		},
		{
			ID: "sorting", Name: "Sorting", Order: 3, Prerequisites: []string{"searching"},
			Algorithms: []catalog.AlgorithmSpec{
				{ID: "bubbleSort", Name: "Bubble Sort", Points: 10},
			},
		},
	}}
}

// newUser creates a verified account with an initialized aggregate
func (f *fixture) newUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	ctx := context.Background()
	u, err := repository.NewUserRepository(f.db).CreateUser(ctx, &models.User{
		Username:        username,
		Email:           username + "@example.com",
		PasswordHash:    "hash",
		Role:            role,
		IsEmailVerified: true,
	})
	require.NoError(t, err)
	if role != "" && u.Role != role {
		require.NoError(t, repository.NewUserRepository(f.db).UpdateRole(ctx, u.ID, role))
		u.Role = role
	}

	cat, err := f.catalog.Catalog(ctx)
	require.NoError(t, err)
	_, err = f.progress.Initialize(ctx, repository.NewProgressRepository(f.db), u.ID, cat)
	require.NoError(t, err)
	return u
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
