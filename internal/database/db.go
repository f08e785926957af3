package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	maxOpenConns = 25
	maxIdleConns = 10
	connLifetime = 30 * time.Minute
	pingTimeout  = 5 * time.Second
)

// Open connects to MySQL, applies pool limits and verifies the connection
// with a bounded ping. Timestamps are stored and read as UTC; parseTime maps
// DATETIME columns onto time.Time during scans.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(user, pass, host, port, name string) string {
	auth := url.QueryEscape(user)
	if pass != "" {
		auth += ":" + url.QueryEscape(pass)
	}
	return auth + "@tcp(" + host + ":" + port + ")/" + name +
		"?charset=utf8mb4&parseTime=true&loc=UTC"
}
