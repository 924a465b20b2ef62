package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"licensegate/config"
	"licensegate/database"
	_ "licensegate/docs" // Swagger 문서
	"licensegate/handlers"
	"licensegate/logger"
	"licensegate/middleware"
	"licensegate/scheduler"
	"licensegate/services"
	"licensegate/utils"
)

// @title License Gate API
// @version 1.0
// @description 라이선스 키 발급/검증/좌석 관리 서버
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT 토큰을 입력하세요. 형식: Bearer {token}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}

	logConfig := logger.Config{
		Level:    logger.ParseLevel(cfg.LogLevel),
		LogDir:   cfg.LogDir,
		MaxAge:   7, // 7일
		UseColor: true,
	}

	if err := logger.Initialize(logConfig); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}

	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Info("🚀 License Gate Server Starting")
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	utils.SetJWTSecret(cfg.JWTSecret)

	if err := database.Initialize(cfg.DBDriver, cfg.DBDSN); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 서비스 계층 초기화
	sqlExecutor := services.NewSQLExecutor(database.DB)
	productService := services.NewProductService(sqlExecutor)
	licenseService := services.NewLicenseService(sqlExecutor, productService, services.NewKeyGenerator(), cfg.AllowNoExpiry)

	productHTTPHandler := handlers.NewProductHandler(productService)
	licenseHTTPHandler := handlers.NewLicenseHandler(licenseService)

	// 스케줄러 시작 (만료된 라이선스 자동 처리)
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler.Start(schedCtx)

	// 라우터 설정
	mux := http.NewServeMux()

	// Swagger 문서
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Public 엔드포인트
	mux.HandleFunc("/", homeHandler)
	mux.HandleFunc("/health", healthHandler)

	// 클라이언트 API (인증 불필요)
	mux.HandleFunc("/api/license/validate",
		middleware.ChainMiddleware(
			licenseHTTPHandler.Validate,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/license/activate",
		middleware.ChainMiddleware(
			licenseHTTPHandler.Activate,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 인증 API (관리자)
	mux.HandleFunc("/api/admin/login",
		middleware.ChainMiddleware(
			handlers.Login,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/me",
		middleware.ChainMiddleware(
			handlers.GetMe,
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/change-password",
		middleware.ChainMiddleware(
			handlers.ChangePassword,
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 라이선스 관리 API (인증 필요)
	mux.HandleFunc("/api/admin/licenses",
		middleware.ChainMiddleware(
			licenseCollectionRouter(licenseHTTPHandler),
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/licenses/",
		middleware.ChainMiddleware(
			licenseDetailRouter(licenseHTTPHandler),
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/licenses/renew",
		middleware.ChainMiddleware(
			licenseHTTPHandler.Renew,
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/licenses/revoke",
		middleware.ChainMiddleware(
			licenseHTTPHandler.Revoke,
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 제품 관리 API (인증 필요)
	mux.HandleFunc("/api/admin/products",
		middleware.ChainMiddleware(
			productCollectionRouter(productHTTPHandler),
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/products/",
		middleware.ChainMiddleware(
			productDetailRouter(productHTTPHandler),
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 대시보드 API (인증 필요)
	mux.HandleFunc("/api/admin/dashboard",
		middleware.ChainMiddleware(
			handlers.GetDashboardStats,
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/activity",
		middleware.ChainMiddleware(
			handlers.GetRecentActivity,
			middleware.LoggingMiddleware,
			middleware.AuthMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown 설정
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Warn("Received shutdown signal")
		stopScheduler()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error: %v", err)
		}
	}()

	logger.Info("Server listening on http://localhost%s", cfg.Addr())
	logger.Info("Swagger UI: http://localhost%s/swagger/index.html", cfg.Addr())
	logger.Info("Log directory: %s", cfg.LogDir)
	logger.Info("Database: %s - %s", cfg.DBDriver, cfg.DBDSN)
	logger.Info("Default admin - username: admin, password: admin123")
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed to start: %v", err)
	}

	database.Close()
	logger.Info("Server stopped")
}

// homeHandler 루트 핸들러
func homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"success","message":"License Gate Server","version":"1.0.0"}`))
}

// healthHandler 헬스체크 핸들러
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"success","message":"Server is healthy"}`))
}

// licenseCollectionRouter 라이선스 목록/발급 핸들러
func licenseCollectionRouter(h *handlers.LicenseHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Issue(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// licenseDetailRouter 라이선스 상세/수정/삭제 핸들러
func licenseDetailRouter(h *handlers.LicenseHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r)
		case http.MethodPut:
			h.Update(w, r)
		case http.MethodDelete:
			h.Delete(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// productCollectionRouter 제품 목록/생성 핸들러
func productCollectionRouter(h *handlers.ProductHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// productDetailRouter 제품 상세/수정/삭제 핸들러
func productDetailRouter(h *handlers.ProductHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r)
		case http.MethodPut:
			h.Update(w, r)
		case http.MethodDelete:
			h.Delete(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
