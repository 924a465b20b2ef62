package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"licensegate/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var DB *sql.DB
var dbType string

// Initialize 데이터베이스 초기화
// driver: "sqlite" 또는 "mysql"
// dsn: SQLite 파일 경로 또는 MySQL DSN
func Initialize(driver, dsn string) error {
	var err error

	if driver == "" {
		driver = "sqlite"
	}
	if dsn == "" && driver == "sqlite" {
		dsn = "./licensegate.db"
	}

	dbType = driver

	// SQLite는 외래키 기본값이 off다. DSN pragma로 커넥션 풀의
	// 모든 커넥션에 적용한다.
	if dbType == "sqlite" && !strings.Contains(dsn, "_pragma") {
		dsn += "?_pragma=foreign_keys(1)"
	}

	DB, err = sql.Open(dbType, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if err := createDefaultAdmin(); err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}

	if err := createSampleProducts(); err != nil {
		return fmt.Errorf("failed to create sample products: %w", err)
	}

	logger.Info("Database initialized successfully (%s)", dbType)
	return nil
}

// createTables 테이블 생성. SQLite/MySQL 문법 차이가 있는 구문은 분기한다.
func createTables() error {
	commonTables := []string{
		// 관리자 테이블
		`CREATE TABLE IF NOT EXISTS admins (
			id VARCHAR(50) PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			email VARCHAR(100) NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT ''
		)`,

		// 제품 테이블
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) UNIQUE NOT NULL,
			sku VARCHAR(100) UNIQUE NOT NULL,
			description TEXT,
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT ''
		)`,

		// 라이선스 테이블
		// activation_slot은 status가 active인 동안에만 'on'으로 유지되는 보조 컬럼.
		// (user_id, product_id, activation_slot) UNIQUE와 결합하면 SQLite/MySQL
		// 양쪽에서 "사용자당 제품별 활성 라이선스 1개" 제약이 성립한다.
		// (NULL은 두 엔진 모두 UNIQUE 충돌을 일으키지 않는다)
		`CREATE TABLE IF NOT EXISTS licenses (
			id VARCHAR(50) PRIMARY KEY,
			license_key VARCHAR(255) UNIQUE NOT NULL,
			product_id VARCHAR(50) NOT NULL,
			user_id VARCHAR(50),
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			license_type VARCHAR(50) NOT NULL DEFAULT 'subscription',
			expiry_date VARCHAR(50),
			max_activations INT NOT NULL DEFAULT 3,
			activations_count INT NOT NULL DEFAULT 0,
			activation_slot VARCHAR(10),
			renewed_at VARCHAR(50),
			last_device_id VARCHAR(255),
			last_machine_name VARCHAR(255),
			last_mac_address VARCHAR(100),
			last_activated_at VARCHAR(50),
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT '',
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
			UNIQUE (user_id, product_id, activation_slot)
		)`,

		// 좌석 할당 테이블 (라이선스별 디바이스 1좌석)
		`CREATE TABLE IF NOT EXISTS seat_activations (
			id VARCHAR(50) PRIMARY KEY,
			license_id VARCHAR(50) NOT NULL,
			device_id VARCHAR(255) NOT NULL,
			machine_name VARCHAR(255),
			mac_address VARCHAR(100),
			activated_at VARCHAR(50) NOT NULL DEFAULT '',
			FOREIGN KEY (license_id) REFERENCES licenses(id) ON DELETE CASCADE,
			UNIQUE (license_id, device_id)
		)`,
	}

	commonIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_products_status ON products(status)`,
		`CREATE INDEX IF NOT EXISTS idx_licenses_product ON licenses(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_licenses_user ON licenses(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_licenses_status ON licenses(status)`,
		`CREATE INDEX IF NOT EXISTS idx_licenses_expiry ON licenses(expiry_date)`,
		`CREATE INDEX IF NOT EXISTS idx_seats_license ON seat_activations(license_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_license ON activation_logs(license_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_created ON activation_logs(created_at)`,
	}

	// 활동 로그 테이블: 자동 증가 키 문법이 엔진별로 다르다.
	var logTable string
	if dbType == "sqlite" {
		logTable = `CREATE TABLE IF NOT EXISTS activation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			license_id VARCHAR(50) NOT NULL,
			action VARCHAR(100) NOT NULL,
			details TEXT,
			created_at VARCHAR(50) NOT NULL DEFAULT ''
		)`
	} else {
		logTable = `CREATE TABLE IF NOT EXISTS activation_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			license_id VARCHAR(50) NOT NULL,
			action VARCHAR(100) NOT NULL,
			details LONGTEXT,
			created_at VARCHAR(50) NOT NULL DEFAULT ''
		) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`
	}

	statements := make([]string, 0, len(commonTables)+1+len(commonIndexes))
	for _, stmt := range commonTables {
		if dbType == "mysql" {
			stmt += " CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"
		}
		statements = append(statements, stmt)
	}
	statements = append(statements, logTable)
	statements = append(statements, commonIndexes...)

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			// MySQL은 CREATE INDEX IF NOT EXISTS를 지원하지 않는 버전이 있다.
			if dbType == "mysql" && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}

	return nil
}

// createDefaultAdmin 기본 관리자 계정 생성 (username: admin, password: admin123)
func createDefaultAdmin() error {
	var count int
	err := DB.QueryRow("SELECT COUNT(*) FROM admins").Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	// bcrypt 해시 (비밀번호: admin123)
	hashedPassword := "$2a$10$qSCYloReyQ4gid/Gxf4gquDv3LaMmzC/2lnxvnfAAKnRkkaqXoOha"

	_, err = DB.Exec(`
		INSERT INTO admins (id, username, password, email)
		VALUES (?, ?, ?, ?)`,
		"admin-001", "admin", hashedPassword, "admin@example.com",
	)
	if err != nil {
		return err
	}

	logger.Info("Default admin created (username: admin, password: admin123)")
	return nil
}

// createSampleProducts 샘플 제품 생성
func createSampleProducts() error {
	var count int
	if err := DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	sampleProducts := [][4]string{
		{"prod-001", "Modeler Advanced", "modeler-advanced", "MA-001"},
		{"prod-002", "Modeler Standard", "modeler-standard", "MS-001"},
		{"prod-003", "Render Farm Node", "render-farm-node", "RF-001"},
	}

	query := `INSERT INTO products (id, name, slug, sku, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', 'active', ?, ?)`

	now := nowString()
	for _, p := range sampleProducts {
		if _, err := DB.Exec(query, p[0], p[1], p[2], p[3], now, now); err != nil {
			logger.Error("Failed to create sample product %s: %v", p[0], err)
		} else {
			logger.Info("Sample product created: %s (%s)", p[1], p[3])
		}
	}

	return nil
}

func nowString() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

// Close 데이터베이스 연결 종료
func Close() error {
	if DB != nil {
		logger.Info("Closing database connection")
		return DB.Close()
	}
	return nil
}
