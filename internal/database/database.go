// Package database opens the PostgreSQL handles used by the content store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"libportal/internal/config"
)

var (
	sqlOpen          = sql.Open
	pgxConnectConfig = pgx.ConnectConfig
)

const (
	pingTimeout = 5 * time.Second

	// Application names shown in pg_stat_activity.
	AppName         = "libportal"
	ListenerAppName = "libportal-listener"
)

// BuildPostgresDSN returns a postgres:// URL for c tagged with appName.
// Every missing required setting is named in the error.
func BuildPostgresDSN(c config.DatabaseConfig, appName string) (string, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"host", c.Host}, {"port", c.Port}, {"user", c.User}, {"name", c.Name},
	} {
		if f.val == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("invalid database config: missing %s", strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
		User:   url.User(c.User),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if appName != "" {
		q.Set("application_name", appName)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// NewPostgres opens the pooled document store handle over the pgx stdlib
// driver, traced by otelsql, and pings it.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c, AppName)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
		otelsql.WithSpanOptions(otelsql.SpanOptions{OmitConnResetSession: true, OmitRows: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	applyPool(db, c)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func applyPool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}

// ConnectListener opens a dedicated native pgx connection for LISTEN/NOTIFY.
// Pooled database/sql connections cannot hold a LISTEN session.
func ConnectListener(ctx context.Context, c config.DatabaseConfig) (*pgx.Conn, error) {
	dsn, err := BuildPostgresDSN(c, ListenerAppName)
	if err != nil {
		return nil, err
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse listener config: %w", err)
	}
	// Only LISTEN runs on this connection.
	cc.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgxConnectConfig(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("pgx connect: %w", err)
	}
	return conn, nil
}
