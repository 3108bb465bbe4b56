package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/cache"
	"learnstack/internal/catalog"
	"learnstack/internal/daily"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/security"
	"learnstack/internal/service"
	"learnstack/migrations"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, to, _, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *captureMailer) SendPasswordResetCode(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return m.SendVerificationCode(ctx, to, name, code, ttl)
}

type echoExecutor struct{}

func (echoExecutor) Run(_ context.Context, _, stdin, _, _ string) (daily.ExecutionResult, error) {
	return daily.ExecutionResult{Stdout: stdin}, nil
}

type testServer struct {
	t      *testing.T
	server *httptest.Server
	mailer *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	ctx := context.Background()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(ctx, migrations.FS)
	require.NoError(t, err)

	log := logger.Nop()
	store := cache.NewMemoryStore()
	mailer := &captureMailer{codes: map[string]string{}}

	catalogService := service.NewCatalogService(log, db, store, time.Minute)
	boards := service.NewLeaderboardService(log, db, store, time.Minute)
	achievementService := service.NewAchievementService(log, db, store, time.Minute)
	progressService := service.NewProgressService(log, db, catalogService, boards, achievementService)
	authService := service.NewAuthService(log, db, progressService, mailer, security.NewTokenIssuer("test-secret", time.Hour), 5*time.Minute)
	adminService := service.NewAdminService(log, db, progressService, catalogService)
	dailyService := service.NewDailyService(log, db, daily.NewTracker(echoExecutor{}, time.Second), progressService)
	doubtService := service.NewDoubtService(log, db)
	quizService := service.NewQuizService(log, db)
	backupService := service.NewBackupService(log, db, catalogService)

	_, err = catalogService.Import(ctx, &catalog.Document{Topics: []catalog.TopicSpec{
		{ID: "arrays", Name: "Arrays", Order: 1, Algorithms: []catalog.AlgorithmSpec{{ID: "traversal", Name: "Traversal", Points: 10}}},
		{ID: "searching", Name: "Searching", Order: 2, Prerequisites: []string{"arrays"},
			Algorithms: []catalog.AlgorithmSpec{{ID: "linearSearch", Name: "Linear Search", Points: 10}}},
	}})
	require.NoError(t, err)

	router := &Router{
		Middleware:   NewMiddleware(authService, nil),
		Auth:         NewAuthHandler(authService, nil, "", ""),
		Progress:     NewProgressHandler(progressService),
		Daily:        NewDailyHandler(dailyService),
		Leaderboard:  NewLeaderboardHandler(boards),
		Doubts:       NewDoubtHandler(doubtService),
		Quizzes:      NewQuizHandler(quizService),
		Achievements: NewAchievementHandler(achievementService),
		Admin:        NewAdminHandler(adminService, catalogService, backupService),
	}
	srv := httptest.NewServer(router.Handler(log))
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv, mailer: mailer}
}

// do sends a JSON request and decodes a JSON response into out when non-nil
func (s *testServer) do(method, path, token string, body, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signUp registers and verifies an account, returning its token
func (s *testServer) signUp(username string) string {
	s.t.Helper()
	email := username + "@example.com"
	status := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "secret123",
	}, nil)
	require.Equal(s.t, http.StatusCreated, status)

	s.mailer.mu.Lock()
	code := s.mailer.codes[email]
	s.mailer.mu.Unlock()

	var res service.AuthResult
	status = s.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": email, "otp": code}, &res)
	require.Equal(s.t, http.StatusOK, status)
	require.NotEmpty(s.t, res.Token)
	return res.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlowAndMe(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("alice")

	var me struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/auth/me", token, nil, &me))
	assert.Equal(t, "alice", me.User.Username)

	var env errorEnvelope
	status := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"}, &env)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, env.Error.Message)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", "not-a-token", nil, nil))
}

func TestProgressRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("alice")

	var access struct {
		HasAccess bool   `json:"hasAccess"`
		Status    string `json:"status"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/progress/check-access/searching/linearSearch", token, nil, &access))
	assert.False(t, access.HasAccess)

	var update struct {
		UpdatedTopicStatus string `json:"updatedTopicStatus"`
	}
	status := s.do(http.MethodPost, "/api/progress", token, map[string]interface{}{
		"category": "arrays", "algorithm": "traversal",
		"data": map[string]interface{}{"timeSpentPractice": 60, "pointsPractice": 10, "completed": true},
	}, &update)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", update.UpdatedTopicStatus)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/progress/check-access/searching/linearSearch", token, nil, &access))
	assert.True(t, access.HasAccess)

	var dashboard map[string]json.RawMessage
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/progress/dashboard", token, nil, &dashboard))
	assert.Contains(t, dashboard, "stats")
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp("owner") // the first account is the admin
	userToken := s.signUp("alice")

	var env errorEnvelope
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/stats", userToken, nil, &env))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/mentor/problems", userToken, map[string]string{}, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/admin/stats", "", nil, nil))

	var stats struct {
		TotalUsers int `json:"totalUsers"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/stats", adminToken, nil, &stats))
	assert.Equal(t, 2, stats.TotalUsers)
}

func TestDailyProblemRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp("owner")
	userToken := s.signUp("alice")

	var created struct {
		ID int64 `json:"id"`
	}
	status := s.do(http.MethodPost, "/api/mentor/problems", adminToken, map[string]interface{}{
		"subject": "Arrays", "title": "Echo", "language": "python", "solutionCode": "print(input())",
		"testCases": []map[string]string{{"input": "7", "expectedOutput": "7"}},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/mentor/problems/"+itoa(created.ID)+"/activate", adminToken, nil, nil))

	var active struct {
		ID           int64  `json:"id"`
		SolutionCode string `json:"solutionCode"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/daily/active/Arrays", userToken, nil, &active))
	assert.Equal(t, created.ID, active.ID)
	assert.Empty(t, active.SolutionCode)

	var res service.SubmitResult
	status = s.do(http.MethodPost, "/api/daily/submit", userToken, map[string]interface{}{
		"problemId": created.ID, "submittedCode": "print(input())",
	}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Passed)
	assert.Equal(t, 20, res.PointsAwarded)

	var env errorEnvelope
	status = s.do(http.MethodPost, "/api/daily/submit", userToken, map[string]interface{}{
		"problemId": created.ID, "submittedCode": "print(input())",
	}, &env)
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Error.Retryable)

	var board struct {
		Entries []struct {
			Username string `json:"username"`
			Score    int    `json:"score"`
		} `json:"entries"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/admin/leaderboard/regenerate", adminToken, nil, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/leaderboard/daily-practice", userToken, nil, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "alice", board.Entries[0].Username)
}

func TestDoubtRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp("owner")
	userToken := s.signUp("alice")

	var d struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	status := s.do(http.MethodPost, "/api/doubts", userToken, map[string]string{
		"subject": "Arrays", "title": "Indexing", "message": "Why do arrays start at zero?",
	}, &d)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "open", d.Status)

	var queue []json.RawMessage
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/mentor/doubts", adminToken, nil, &queue))
	assert.Len(t, queue, 1)

	path := "/api/doubts/" + itoa(d.ID)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path+"/reply", adminToken, map[string]string{"message": "Offsets."}, nil))
	require.Equal(t, http.StatusForbidden, s.do(http.MethodPost, path+"/close", adminToken, nil, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path+"/close", userToken, nil, &d))
	assert.Equal(t, "finished", d.Status)
}

func TestQuizRoutes(t *testing.T) {
	s := newTestServer(t)
	mentorToken := s.signUp("owner")
	userToken := s.signUp("alice")

	var test struct {
		ID       int64  `json:"id"`
		IsActive bool   `json:"isActive"`
		Password string `json:"password"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/mentor/tests", mentorToken,
		map[string]string{"title": "Arrays checkpoint", "password": "s3cret"}, &test))
	assert.Empty(t, test.Password)
	base := "/api/mentor/tests/" + itoa(test.ID)

	var question struct {
		ID int64 `json:"id"`
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, base+"/questions", mentorToken, map[string]interface{}{
		"questionType": "mcq", "text": "Index of the first element?",
		"options": []string{"0", "1"}, "correctAnswerIndex": 0, "timeLimit": 30,
	}, &question))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/toggle", mentorToken, nil, &test))
	assert.True(t, test.IsActive)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/mentor/tests", userToken, nil, nil))

	var tests []json.RawMessage
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/tests", userToken, nil, &tests))
	assert.Len(t, tests, 1)

	learner := "/api/tests/" + itoa(test.ID)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, learner+"/start", userToken, map[string]string{"password": "nope"}, nil))

	var session struct {
		Attempt struct {
			ID     int64  `json:"attemptId"`
			UserID int64  `json:"userId"`
			Status string `json:"status"`
		} `json:"attempt"`
		Questions []map[string]json.RawMessage `json:"questions"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, learner+"/start", userToken, map[string]string{"password": "s3cret"}, &session))
	require.Len(t, session.Questions, 1)
	assert.NotContains(t, session.Questions[0], "correctAnswerIndex")

	var attempt struct {
		Status  string `json:"status"`
		Strikes int    `json:"strikes"`
		Score   int    `json:"score"`
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, learner+"/strike", userToken, nil, &attempt))
	}
	assert.Equal(t, "locked", attempt.Status)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/mentor/attempts/unlock", mentorToken, map[string]int64{
		"userId": session.Attempt.UserID, "attemptId": session.Attempt.ID,
	}, &attempt))
	assert.Equal(t, "inprogress", attempt.Status)
	assert.Zero(t, attempt.Strikes)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, learner+"/submit", userToken, map[string]interface{}{
		"answers": []map[string]interface{}{{"questionId": question.ID, "selectedOption": 0}},
	}, &attempt))
	assert.Equal(t, "completed", attempt.Status)
	assert.Equal(t, 1, attempt.Score)

	var board struct {
		TestTitle   string `json:"testTitle"`
		Leaderboard []struct {
			Position int    `json:"position"`
			Username string `json:"username"`
		} `json:"leaderboard"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, base+"/leaderboard", mentorToken, nil, &board))
	assert.Equal(t, "Arrays checkpoint", board.TestTitle)
	require.Len(t, board.Leaderboard, 1)
	assert.Equal(t, "alice", board.Leaderboard[0].Username)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, base, mentorToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, learner+"/attempt", userToken, nil, nil))
}

func TestAchievementRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp("owner")
	userToken := s.signUp("alice")

	achievement := map[string]interface{}{
		"id": "first-steps", "name": "First Steps", "description": "Complete an algorithm",
		"icon": "footprints", "category": "learning", "points": 25,
		"criteriaType": "algorithms_completed", "criteriaValue": 1,
	}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/admin/achievements", userToken, achievement, nil))
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/admin/achievements", adminToken, achievement, nil))

	var available []struct {
		ID     string `json:"id"`
		Rarity string `json:"rarity"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/achievements", userToken, nil, &available))
	require.Len(t, available, 1)
	assert.Equal(t, "common", available[0].Rarity)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/progress", userToken, map[string]interface{}{
		"category": "arrays", "algorithm": "traversal",
		"data": map[string]interface{}{"timeSpentPractice": 60, "completed": true},
	}, nil))

	var me struct {
		Achievements []struct {
			ID string `json:"id"`
		} `json:"achievements"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/auth/me", userToken, nil, &me))
	require.Len(t, me.Achievements, 1)
	assert.Equal(t, "first-steps", me.Achievements[0].ID)

	var dashboard struct {
		Achievements struct {
			Total     int `json:"total"`
			Available int `json:"available"`
		} `json:"achievements"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/progress/dashboard", userToken, nil, &dashboard))
	assert.Equal(t, 1, dashboard.Achievements.Total)
	assert.Equal(t, 1, dashboard.Achievements.Available)

	var stats struct {
		TotalAchievements int `json:"totalAchievements"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/stats", adminToken, nil, &stats))
	assert.Equal(t, 1, stats.TotalAchievements)

	var res struct {
		Updated int `json:"updated"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/admin/achievements/first-steps", adminToken, nil, &res))
	assert.Equal(t, 1, res.Updated)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/auth/me", userToken, nil, &me))
	assert.Empty(t, me.Achievements)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/admin/achievements/first-steps", adminToken, nil, nil))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
