package handlers

import (
	"net/http"

	"learnstack/internal/logger"
)

// Router groups the handlers mounted under /api
type Router struct {
	Middleware   *Middleware
	Auth         *AuthHandler
	Progress     *ProgressHandler
	Daily        *DailyHandler
	Leaderboard  *LeaderboardHandler
	Doubts       *DoubtHandler
	Quizzes      *QuizHandler
	Achievements *AchievementHandler
	Admin        *AdminHandler
}

// Handler builds the mux and wraps it with request logging
func (rt *Router) Handler(log *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	m := rt.Middleware
	auth := m.RequireAuth
	mentor := m.RequireMentor
	admin := m.RequireAdmin

	mux.HandleFunc("GET /healthz", Health)

	// Auth routes
	mux.HandleFunc("POST /api/auth/register", m.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/verify-otp", m.RateLimit(rt.Auth.VerifyOTP))
	mux.HandleFunc("POST /api/auth/resend-otp", m.RateLimit(rt.Auth.ResendOTP))
	mux.HandleFunc("POST /api/auth/login", m.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/forgot-password", m.RateLimit(rt.Auth.ForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", m.RateLimit(rt.Auth.ResetPassword))
	mux.HandleFunc("GET /api/auth/me", auth(rt.Auth.Me))
	mux.HandleFunc("GET /api/auth/oauth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /api/auth/oauth/{provider}/callback", rt.Auth.OAuthCallback)

	// Progress routes
	mux.HandleFunc("GET /api/progress/dashboard", auth(rt.Progress.Dashboard))
	mux.HandleFunc("GET /api/progress/check-access/{topicId}/{algorithmId}", auth(rt.Progress.CheckAccess))
	mux.HandleFunc("POST /api/progress", auth(rt.Progress.PostProgress))

	// Daily problem routes
	mux.HandleFunc("GET /api/daily/active/{subject}", auth(rt.Daily.Active))
	mux.HandleFunc("GET /api/daily/details/{problemId}", auth(rt.Daily.Details))
	mux.HandleFunc("GET /api/daily/my-attempt/{problemId}", auth(rt.Daily.MyAttempt))
	mux.HandleFunc("POST /api/daily/submit", auth(rt.Daily.Submit))

	// Mentor routes
	mux.HandleFunc("POST /api/mentor/problems", mentor(rt.Daily.CreateProblem))
	mux.HandleFunc("POST /api/mentor/problems/{id}/activate", mentor(rt.Daily.Activate))
	mux.HandleFunc("GET /api/mentor/problems/{id}/attempts", mentor(rt.Daily.Attempts))
	mux.HandleFunc("POST /api/mentor/attempts/feedback", mentor(rt.Daily.Feedback))
	mux.HandleFunc("GET /api/mentor/doubts", mentor(rt.Doubts.Queue))
	mux.HandleFunc("GET /api/mentor/tests", mentor(rt.Quizzes.ListMine))
	mux.HandleFunc("POST /api/mentor/tests", mentor(rt.Quizzes.CreateTest))
	mux.HandleFunc("GET /api/mentor/tests/{testId}", mentor(rt.Quizzes.GetTest))
	mux.HandleFunc("DELETE /api/mentor/tests/{testId}", mentor(rt.Quizzes.DeleteTest))
	mux.HandleFunc("POST /api/mentor/tests/{testId}/toggle", mentor(rt.Quizzes.ToggleTest))
	mux.HandleFunc("POST /api/mentor/tests/{testId}/questions", mentor(rt.Quizzes.AddQuestion))
	mux.HandleFunc("DELETE /api/mentor/tests/{testId}/questions/{questionId}", mentor(rt.Quizzes.DeleteQuestion))
	mux.HandleFunc("GET /api/mentor/tests/{testId}/attempts", mentor(rt.Quizzes.Attempts))
	mux.HandleFunc("GET /api/mentor/tests/{testId}/leaderboard", mentor(rt.Quizzes.Leaderboard))
	mux.HandleFunc("GET /api/mentor/questions/{questionId}", mentor(rt.Quizzes.GetQuestion))
	mux.HandleFunc("PUT /api/mentor/questions/{questionId}", mentor(rt.Quizzes.UpdateQuestion))
	mux.HandleFunc("POST /api/mentor/attempts/unlock", mentor(rt.Quizzes.Unlock))

	// Test taking routes
	mux.HandleFunc("GET /api/tests", auth(rt.Quizzes.ActiveTests))
	mux.HandleFunc("POST /api/tests/{testId}/start", auth(rt.Quizzes.Start))
	mux.HandleFunc("POST /api/tests/{testId}/strike", auth(rt.Quizzes.Strike))
	mux.HandleFunc("POST /api/tests/{testId}/submit", auth(rt.Quizzes.Submit))
	mux.HandleFunc("GET /api/tests/{testId}/attempt", auth(rt.Quizzes.MyAttempt))

	// Achievement routes
	mux.HandleFunc("GET /api/achievements", auth(rt.Achievements.Available))

	// Leaderboard routes
	mux.HandleFunc("GET /api/leaderboard", rt.Leaderboard.AllTime)
	mux.HandleFunc("GET /api/leaderboard/daily-practice", auth(rt.Leaderboard.DailyPractice))
	mux.HandleFunc("GET /api/leaderboard/my-rank", auth(rt.Leaderboard.MyRank))

	// Doubt routes
	mux.HandleFunc("GET /api/doubts/subjects", auth(rt.Doubts.Subjects))
	mux.HandleFunc("POST /api/doubts", auth(rt.Doubts.Ask))
	mux.HandleFunc("GET /api/doubts/mine", auth(rt.Doubts.Mine))
	mux.HandleFunc("GET /api/doubts/{id}", auth(rt.Doubts.Thread))
	mux.HandleFunc("POST /api/doubts/{id}/reply", auth(rt.Doubts.Reply))
	mux.HandleFunc("POST /api/doubts/{id}/close", auth(rt.Doubts.Close))

	// Admin routes
	mux.HandleFunc("GET /api/admin/stats", admin(rt.Admin.Stats))
	mux.HandleFunc("GET /api/admin/users", admin(rt.Admin.ListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}/role", admin(rt.Admin.UpdateRole))
	mux.HandleFunc("DELETE /api/admin/users/{id}", admin(rt.Admin.DeleteUser))
	mux.HandleFunc("GET /api/admin/users/{id}/topic-statuses", admin(rt.Admin.TopicStatuses))
	mux.HandleFunc("GET /api/admin/topics", admin(rt.Admin.ListTopics))
	mux.HandleFunc("POST /api/admin/topics", admin(rt.Admin.CreateTopic))
	mux.HandleFunc("PUT /api/admin/topics/{id}", admin(rt.Admin.UpdateTopic))
	mux.HandleFunc("DELETE /api/admin/topics/{id}", admin(rt.Admin.DeleteTopic))
	mux.HandleFunc("POST /api/admin/topics/{id}/lock", admin(rt.Admin.LockTopic))
	mux.HandleFunc("POST /api/admin/topics/{id}/unlock", admin(rt.Admin.UnlockTopic))
	mux.HandleFunc("POST /api/admin/topics/{id}/algorithms/{algoId}/lock", admin(rt.Admin.LockAlgorithm))
	mux.HandleFunc("POST /api/admin/topics/{id}/algorithms/{algoId}/unlock", admin(rt.Admin.UnlockAlgorithm))
	mux.HandleFunc("POST /api/admin/users/{id}/topics/{topicId}/lock", admin(rt.Admin.LockUserTopic))
	mux.HandleFunc("POST /api/admin/users/{id}/topics/{topicId}/unlock", admin(rt.Admin.UnlockUserTopic))
	mux.HandleFunc("POST /api/admin/users/{id}/topics/{topicId}/algorithms/{algoId}/lock", admin(rt.Admin.LockUserAlgorithm))
	mux.HandleFunc("POST /api/admin/users/{id}/topics/{topicId}/algorithms/{algoId}/unlock", admin(rt.Admin.UnlockUserAlgorithm))
	mux.HandleFunc("POST /api/admin/leaderboard/regenerate", admin(rt.Leaderboard.Regenerate))
	mux.HandleFunc("POST /api/admin/recompute", admin(rt.Admin.Recompute))
	mux.HandleFunc("GET /api/admin/achievements", admin(rt.Achievements.List))
	mux.HandleFunc("POST /api/admin/achievements", admin(rt.Achievements.Create))
	mux.HandleFunc("GET /api/admin/achievements/{id}", admin(rt.Achievements.Get))
	mux.HandleFunc("PUT /api/admin/achievements/{id}", admin(rt.Achievements.Update))
	mux.HandleFunc("DELETE /api/admin/achievements/{id}", admin(rt.Achievements.Delete))
	mux.HandleFunc("GET /api/admin/backup", admin(rt.Admin.ExportDatabase))
	mux.HandleFunc("POST /api/admin/backup", admin(rt.Admin.ImportDatabase))

	return Logging(log)(mux)
}
