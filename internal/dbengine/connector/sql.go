package connector

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/usphq/usp/internal/errors"
)

// sqlConnector is the shared implementation for the database/sql backed
// variants. Each variant supplies its driver name and its default statements
// for dropping users and rotating the admin password.
type sqlConnector struct {
	driverName      string
	defaultRevoke   func(username string) []string
	rotateStatement func(username, password string) string
}

// open dials a transient admin connection. Connections are short-lived by
// construction; the engine never pools against managed databases.
func (c *sqlConnector) open(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open(c.driverName, renderDSN(cfg))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(time.Minute)
	return db, nil
}

func (c *sqlConnector) VerifyConnection(ctx context.Context, cfg *Config) error {
	db, err := c.open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}

func (c *sqlConnector) CreateUser(ctx context.Context, cfg *Config, username, password string, statements []string, expiresAt time.Time) error {
	db, err := c.open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return c.execute(ctx, db, statements, username, password, expiresAt)
}

func (c *sqlConnector) RevokeUser(ctx context.Context, cfg *Config, username string, statements []string) error {
	db, err := c.open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(statements) == 0 {
		statements = c.defaultRevoke(username)
	}
	return c.execute(ctx, db, statements, username, "", time.Time{})
}

func (c *sqlConnector) RotateRootPassword(ctx context.Context, cfg *Config, newPassword string) error {
	db, err := c.open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, c.rotateStatement(cfg.AdminUsername, newPassword)); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}

// execute runs rendered statements in order. Statements run outside a
// transaction: user management DDL is not transactional on every variant, and
// revocation must make as much progress as possible.
func (c *sqlConnector) execute(ctx context.Context, db *sql.DB, statements []string, username, password string, expiresAt time.Time) error {
	for _, statement := range statements {
		rendered := RenderStatement(statement, username, password, expiresAt)
		if rendered == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, rendered); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, err.Error())
		}
	}
	return nil
}
