package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// Supported values of DB_DRIVER
const (
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
)

// DB holds the database connection
var DB *sql.DB

// Driver is the driver DB was opened with
var Driver = DriverPostgres

// Redis is the optional session store connection, nil when REDIS_ADDR is unset
var Redis *redis.Client

// InitDB initializes the database connection from environment variables
func InitDB() error {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = DriverPostgres
	}

	connStr, err := connectionString(driver)
	if err != nil {
		return err
	}

	DB, err = sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	Driver = driver

	// Test the connection
	ctx := context.Background()
	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("✓ Database connection established successfully (%s)", driver)
	return nil
}

// connectionString builds the DSN from DATABASE_URL or the individual DB_* variables
func connectionString(driver string) (string, error) {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr, nil
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	sslmode := os.Getenv("DB_SSLMODE")

	if host == "" || user == "" || dbname == "" {
		return "", fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}

	switch driver {
	case DriverPostgres:
		if port == "" {
			port = "5432"
		}
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode), nil
	case DriverMySQL:
		if port == "" {
			port = "3306"
		}
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = password
		cfg.Net = "tcp"
		cfg.Addr = host + ":" + port
		cfg.DBName = dbname
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q (use %s or %s)", driver, DriverPostgres, DriverMySQL)
	}
}

// CloseDB closes the database connection
func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// InitRedis connects to REDIS_ADDR when it is set. Without it sessions stay in memory.
func InitRedis() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Printf("⚠️  REDIS_ADDR not set, editor sessions will be kept in memory")
		return nil
	}

	dbIndex := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		dbIndex = n
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbIndex,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	Redis = client
	log.Printf("✓ Redis connection established successfully (%s)", addr)
	return nil
}

// CloseRedis closes the redis connection if one was opened
func CloseRedis() error {
	if Redis != nil {
		return Redis.Close()
	}
	return nil
}
