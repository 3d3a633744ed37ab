package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/account"
	"classtrack/internal/activity"
	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/httpmiddleware"
	"classtrack/internal/lock"
	"classtrack/internal/metrics"
	"classtrack/internal/points"
	"classtrack/internal/roster"
	"classtrack/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	lockSvc := lock.NewService(
		lock.NewRepository(db.Client),
		lock.NewRedisCache(redisClient.Client, cfg.LockCacheTTL),
	)
	attSvc := attendance.NewService(attendance.NewRepository(db.Client), lockSvc)
	pointsSvc := points.NewService(points.NewRepository(db.Client))
	accountSvc := account.NewService(account.NewRepository(db.Client))
	rosterSvc := roster.NewService(roster.NewRepository(db.Client))
	activitySvc := activity.NewService(activity.NewRepository(db.Client))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/api/auth/register", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
			Role     string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		acct, err := accountSvc.Create(c.Request.Context(), req.Username, req.Password, req.Role)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": acct.ID, "username": acct.Username, "role": acct.Role})
	})

	r.POST("/api/auth/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := accountSvc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			metrics.Logins.WithLabelValues(outcomeFor(err)).Inc()
			httpError(c, err)
			return
		}
		token, err := auth.Issue(res.AccountID, res.Username, res.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			metrics.Logins.WithLabelValues(metrics.OutcomeError).Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		metrics.Logins.WithLabelValues(metrics.OutcomeOK).Inc()
		c.JSON(http.StatusOK, gin.H{
			"id":            res.AccountID,
			"role":          res.Role,
			"access_token":  token.Value,
			"expires_at":    token.ExpiresAt.Unix(),
			"streak_count":  res.StreakCount,
			"best_streak":   res.BestStreak,
			"level":         res.Level,
			"last_login_at": res.LastLoginAt,
		})
	})

	// Lock reads are unrestricted.
	r.GET("/api/locks/:key", func(c *gin.Context) {
		locked, err := lockSvc.Get(c.Request.Context(), c.Param("key"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"locked": locked})
	})

	api := r.Group("/api", auth.Authenticated(cfg.JWTSigningKey, cfg.JWTIssuer))

	api.PUT("/locks/:key", func(c *gin.Context) {
		var req struct {
			Locked *bool `json:"locked" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid locked value"})
			return
		}
		role := auth.ClaimsFrom(c).Role
		if err := lockSvc.Set(c.Request.Context(), c.Param("key"), *req.Locked, role); err != nil {
			metrics.LockWrites.WithLabelValues(outcomeFor(err)).Inc()
			httpError(c, err)
			return
		}
		metrics.LockWrites.WithLabelValues(metrics.OutcomeOK).Inc()
		c.JSON(http.StatusOK, gin.H{"locked": *req.Locked})
	})

	api.POST("/attendance", func(c *gin.Context) {
		var req struct {
			TeacherID   int    `json:"teacherId" binding:"required"`
			StudentName string `json:"studentName" binding:"required"`
			Status      string `json:"status" binding:"required"`
			Date        string `json:"date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := attSvc.Record(c.Request.Context(), req.TeacherID, req.StudentName, req.Status, req.Date)
		if err != nil {
			metrics.AttendanceMarks.WithLabelValues(outcomeFor(err)).Inc()
			httpError(c, err)
			return
		}
		metrics.AttendanceMarks.WithLabelValues(metrics.OutcomeOK).Inc()
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.GET("/attendance", func(c *gin.Context) {
		teacherID := intQuery(c, "teacherId")
		records, err := attSvc.ByTeacher(c.Request.Context(), teacherID)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	})

	// With a date this returns the roster with per-student status; without it,
	// the plain student list.
	api.GET("/students", func(c *gin.Context) {
		teacherID := intQuery(c, "teacherId")
		if date := c.Query("date"); date != "" {
			entries, err := attSvc.Roster(c.Request.Context(), teacherID, date)
			if err != nil {
				httpError(c, err)
				return
			}
			c.JSON(http.StatusOK, entries)
			return
		}
		students, err := rosterSvc.ByTeacher(c.Request.Context(), teacherID)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, students)
	})

	api.POST("/students/create", func(c *gin.Context) {
		var req struct {
			TeacherID int    `json:"teacherId" binding:"required"`
			Name      string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		student, err := rosterSvc.Create(c.Request.Context(), req.TeacherID, req.Name)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, student)
	})

	api.DELETE("/students/delete", func(c *gin.Context) {
		var req struct {
			TeacherID int    `json:"teacherId" binding:"required"`
			Name      string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rosterSvc.Delete(c.Request.Context(), req.TeacherID, req.Name); err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.GET("/students/points", func(c *gin.Context) {
		balances, err := pointsSvc.ByTeacher(c.Request.Context(), intQuery(c, "teacherId"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, balances)
	})

	api.POST("/students/points/bulk", func(c *gin.Context) {
		var req struct {
			TeacherID int             `json:"teacherId" binding:"required"`
			Updates   []points.Update `json:"updates" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "teacherId and updates[] required"})
			return
		}
		if err := pointsSvc.ApplyBatch(c.Request.Context(), req.TeacherID, req.Updates); err != nil {
			metrics.PointsBatches.WithLabelValues(outcomeFor(err)).Inc()
			httpError(c, err)
			return
		}
		metrics.PointsBatches.WithLabelValues(metrics.OutcomeOK).Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api.GET("/teachers", func(c *gin.Context) {
		teachers, err := accountSvc.Teachers(c.Request.Context())
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, teachers)
	})

	api.GET("/teachers/name-map", func(c *gin.Context) {
		m, err := accountSvc.NameMap(c.Request.Context())
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	})

	admin := api.Group("", auth.RequireRole(account.RoleAdmin))

	admin.POST("/teachers/create", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
			Role     string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		acct, err := accountSvc.Create(c.Request.Context(), req.Username, req.Password, req.Role)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": acct.ID, "username": acct.Username, "role": acct.Role})
	})

	admin.DELETE("/teachers/delete", func(c *gin.Context) {
		var req struct {
			TeacherID int `json:"teacherId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := accountSvc.DeleteClass(c.Request.Context(), req.TeacherID); err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.PUT("/teachers/update-password", func(c *gin.Context) {
		var req struct {
			TeacherID   int    `json:"teacherId" binding:"required"`
			NewPassword string `json:"newPassword" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := accountSvc.UpdatePassword(c.Request.Context(), req.TeacherID, req.NewPassword); err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.PUT("/teachers/update-name", func(c *gin.Context) {
		var req struct {
			TeacherID int    `json:"teacherId" binding:"required"`
			NewName   string `json:"newName" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := accountSvc.UpdateDisplayName(c.Request.Context(), req.TeacherID, req.NewName); err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	api.GET("/activities", func(c *gin.Context) {
		refs, err := activitySvc.Catalog(c.Request.Context())
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, refs)
	})

	api.POST("/activities", func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ref, err := activitySvc.CreateActivity(c.Request.Context(), req.Name)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ref)
	})

	api.GET("/activities/by-day", func(c *gin.Context) {
		entries, err := activitySvc.ByDay(c.Request.Context(), c.Query("day"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	api.GET("/activities/overview", func(c *gin.Context) {
		rows, err := activitySvc.TeacherOverview(c.Request.Context(), intQuery(c, "teacherId"))
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	api.GET("/activities/student/:id", func(c *gin.Context) {
		studentID, _ := strconv.Atoi(c.Param("id"))
		week, err := activitySvc.WeekFor(c.Request.Context(), studentID)
		if err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, week)
	})

	api.POST("/activities/student/:id", func(c *gin.Context) {
		studentID, _ := strconv.Atoi(c.Param("id"))
		var week map[string]*int
		if err := c.ShouldBindJSON(&week); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := activitySvc.ReplaceWeek(c.Request.Context(), studentID, week); err != nil {
			httpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

// httpError maps the error taxonomy onto status codes.
func httpError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrLocked):
		status = http.StatusLocked
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, apperr.ErrStorage):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

func intQuery(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
