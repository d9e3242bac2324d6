package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/sisclient"
	"rollcall/internal/store"
	"rollcall/internal/student"
)

var transitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rollcall_transitions_total",
		Help: "Roster transitions applied, by resulting status.",
	},
	[]string{"status"},
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	prometheus.MustRegister(transitionsTotal)

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:transitions")
	}

	attRepo := attendance.NewRepository(db.Client)
	attSvc := attendance.NewService(attRepo)
	studentRepo := student.NewRepository(db.Client)
	sis := sisclient.New(cfg.SISBaseURL, cfg.SISSkip)

	schedule := roster.Schedule{
		Start:         cfg.ClassStart,
		LateThreshold: cfg.LateThreshold,
		End:           cfg.ClassEnd,
	}

	// Every applied transition goes to the queue for the event-log worker.
	// Publish failures are logged and never fail the roster operation.
	recorder := func(tr roster.Transition) {
		transitionsTotal.WithLabelValues(string(tr.Status)).Inc()
		msg, err := queue.NewTransitionMessage(tr)
		if err != nil {
			log.Printf("encode transition failed: %v", err)
			return
		}
		pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := q.Publish(pubCtx, msg); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}
	rosterStore := roster.NewStore(schedule, roster.ImportMode(cfg.ImportMode), recorder)

	// Seed the roster at startup so the day starts with a snapshot even
	// when the SIS or database is down.
	seedRoster(rosterStore, sis, studentRepo, cfg.SISSkip)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy, "roster_size": rosterStore.Len()})
	})

	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			Subject string `json:"subject" binding:"required"`
			Role    string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role := req.Role
		if role != auth.RoleAdmin {
			role = auth.RoleStaff
		}

		tokens, err := auth.Issue(req.Subject, role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	// Student directory CRUD.
	authGroup.GET("/students", func(c *gin.Context) {
		students, err := studentRepo.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": students})
	})

	authGroup.POST("/students", func(c *gin.Context) {
		var req student.Student
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.FirstName == "" || req.LastName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "first_name and last_name required"})
			return
		}
		created, err := studentRepo.Insert(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	authGroup.GET("/students/:id", func(c *gin.Context) {
		s, err := studentRepo.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	authGroup.PUT("/students/:id", func(c *gin.Context) {
		var req student.Student
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.ID = c.Param("id")
		if err := studentRepo.Update(c.Request.Context(), req); err != nil {
			if errors.Is(err, student.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "student updated"})
	})

	authGroup.DELETE("/students/:id", auth.RequireAdmin(), func(c *gin.Context) {
		if err := studentRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, student.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "student deleted"})
	})

	// Roster operations.
	authGroup.POST("/roster/load", func(c *gin.Context) {
		fetchError := false
		if !cfg.SISSkip {
			raw, err := sis.FetchStudents(c.Request.Context())
			if err == nil {
				rosterStore.LoadRaw(raw)
				c.JSON(http.StatusOK, gin.H{"loaded": rosterStore.Len(), "source": "sis"})
				return
			}
			// Degrade: keep whatever snapshot is in memory.
			log.Printf("sis fetch failed: %v", err)
			fetchError = true
		}
		students, err := studentRepo.List(c.Request.Context())
		if err != nil {
			log.Printf("student list failed: %v", err)
			c.JSON(http.StatusOK, gin.H{"loaded": rosterStore.Len(), "source": "memory", "fetch_error": true})
			return
		}
		rosterStore.LoadRaw(student.RawAll(students))
		c.JSON(http.StatusOK, gin.H{"loaded": rosterStore.Len(), "source": "db", "fetch_error": fetchError})
	})

	authGroup.GET("/roster", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"students": rosterStore.Snapshot()})
	})

	authGroup.GET("/roster/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, rosterStore.Stats())
	})

	authGroup.POST("/roster/checkins", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		applied := rosterStore.CheckIn(req.StudentID, time.Now())
		c.JSON(http.StatusAccepted, gin.H{"applied": applied, "stats": rosterStore.Stats()})
	})

	authGroup.POST("/roster/status", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			Status    string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, err := roster.ParseStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		applied := rosterStore.SetStatus(req.StudentID, status, time.Now())
		c.JSON(http.StatusAccepted, gin.H{"applied": applied, "stats": rosterStore.Stats()})
	})

	authGroup.POST("/roster/status/bulk", func(c *gin.Context) {
		var req struct {
			StudentIDs []string `json:"student_ids" binding:"required"`
			Status     string   `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, err := roster.ParseStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated := rosterStore.BulkSetStatus(req.StudentIDs, status, time.Now())
		c.JSON(http.StatusAccepted, gin.H{"updated": updated, "stats": rosterStore.Stats()})
	})

	authGroup.GET("/roster/export", func(c *gin.Context) {
		c.Header("Content-Disposition", `attachment; filename="`+roster.ExportFilename+`"`)
		c.Data(http.StatusOK, "text/csv", []byte(rosterStore.ExportCSV()))
	})

	authGroup.POST("/roster/import", func(c *gin.Context) {
		text, err := readImportBody(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		imported := rosterStore.ImportCSV(text, time.Now())
		c.JSON(http.StatusOK, gin.H{"imported": imported, "mode": cfg.ImportMode, "roster_size": rosterStore.Len()})
	})

	authGroup.GET("/attendance/summary", func(c *gin.Context) {
		day := c.Query("date")
		if day == "" {
			day = time.Now().Format("1/2/2006")
		}
		var cached attendance.Summary
		if redisClient.CachedSummary(c.Request.Context(), day, &cached) {
			c.JSON(http.StatusOK, cached)
			return
		}
		sum, err := attSvc.DaySummary(c.Request.Context(), day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := redisClient.CacheSummary(c.Request.Context(), day, sum, 30*time.Second); err != nil {
			log.Printf("summary cache failed: %v", err)
		}
		c.JSON(http.StatusOK, sum)
	})

	authGroup.GET("/attendance/events", func(c *gin.Context) {
		limit, offset := 50, 0
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				limit = parsed
			}
		}
		if v := c.Query("offset"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				offset = parsed
			}
		}
		events, err := attRepo.ListEvents(c.Request.Context(), c.Query("student_id"), c.Query("status"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	// The absence sweep: one pass per tick marks anyone still unchecked-in
	// as Absent once class has started. Each pass runs to completion under
	// the store mutex, so it never interleaves with request handlers.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if swept := rosterStore.Sweep(now); swept > 0 {
					log.Printf("absence sweep marked %d students absent", swept)
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// seedRoster fills the initial snapshot: SIS when configured, database as
// the fallback, sample data only when both are unavailable.
func seedRoster(rs *roster.Store, sis *sisclient.Client, repo *student.Repository, sisSkip bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !sisSkip {
		raw, err := sis.FetchStudents(ctx)
		if err == nil {
			rs.LoadRaw(raw)
			log.Printf("roster seeded from sis: %d students", rs.Len())
			return
		}
		log.Printf("sis seed failed: %v", err)
	}
	if students, err := repo.List(ctx); err == nil && len(students) > 0 {
		rs.LoadRaw(student.RawAll(students))
		log.Printf("roster seeded from db: %d students", rs.Len())
		return
	}
	sample := sisclient.New("", true)
	raw, _ := sample.FetchStudents(ctx)
	rs.LoadRaw(raw)
	log.Printf("roster seeded with sample data: %d students", rs.Len())
}

// readImportBody accepts either a multipart "file" field or a raw CSV body.
func readImportBody(c *gin.Context) (string, error) {
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			return "", errors.New("file field required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", errors.New("read file failed")
		}
		return string(data), nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", errors.New("read body failed")
	}
	return string(data), nil
}

// CORS middleware for browser requests
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

// Security headers middleware
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
