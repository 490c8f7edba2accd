package connector

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/usphq/usp/internal/errors"
)

// redisConnector manages users through ACL commands. Creation statements are
// ACL rule fragments (e.g. "~app:* +@read") appended to the generated
// ACL SETUSER command.
type redisConnector struct{}

// NewRedis creates the Redis connector. Connection URLs use the redis://
// scheme understood by go-redis.
func NewRedis() Connector {
	return &redisConnector{}
}

func (c *redisConnector) client(cfg *Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(renderDSN(cfg))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	if cfg.AdminUsername != "" {
		opt.Username = cfg.AdminUsername
		opt.Password = cfg.AdminPassword
	}
	return redis.NewClient(opt), nil
}

func (c *redisConnector) VerifyConnection(ctx context.Context, cfg *Config) error {
	client, err := c.client(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}

func (c *redisConnector) CreateUser(ctx context.Context, cfg *Config, username, password string, statements []string, expiresAt time.Time) error {
	client, err := c.client(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	args := []interface{}{"ACL", "SETUSER", username, "on", ">" + password}
	for _, statement := range statements {
		rendered := RenderStatement(statement, username, password, expiresAt)
		for _, field := range strings.Fields(rendered) {
			args = append(args, field)
		}
	}

	if err := client.Do(ctx, args...).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}

func (c *redisConnector) RevokeUser(ctx context.Context, cfg *Config, username string, statements []string) error {
	client, err := c.client(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Do(ctx, "ACL", "DELUSER", username).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}

func (c *redisConnector) RotateRootPassword(ctx context.Context, cfg *Config, newPassword string) error {
	client, err := c.client(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	username := cfg.AdminUsername
	if username == "" {
		username = "default"
	}
	if err := client.Do(ctx, "ACL", "SETUSER", username, ">"+newPassword).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}
