package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	conn   *sql.DB
	orm    *gorm.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var dialector gorm.Dialector
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", sqliteDSN(config.SQLitePath))
		if err == nil {
			// sqlite serialises writers
			conn.SetMaxOpenConns(1)
			dialector = &sqlite.Dialector{Conn: conn}
		}
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
		if err == nil {
			conn.SetMaxOpenConns(20)
			conn.SetConnMaxIdleTime(5 * time.Minute)
			dialector = postgres.New(postgres.Config{Conn: conn})
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	orm, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}

	return &DB{conn: conn, orm: orm, dbType: config.Type}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_foreign_keys=on"
}

// RunMigrations applies the embedded schema. A non-empty dir overrides it
// with migrations read from disk.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	m := NewMigrator(db.conn, db.dbType)
	if dir != "" {
		return m.RunDir(ctx, dir)
	}
	return m.Run(ctx, Migrations())
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) GORM() *gorm.DB {
	return db.orm
}

func (db *DB) Type() string {
	return db.dbType
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
