package connector

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	apperrors "github.com/usphq/usp/internal/errors"
)

// mongoConnector manages users through admin database commands. Creation
// statements are MongoDB command documents in extended JSON; {{name}} and
// {{password}} are substituted before parsing.
type mongoConnector struct{}

// NewMongo creates the MongoDB connector.
func NewMongo() Connector {
	return &mongoConnector{}
}

func (c *mongoConnector) connect(cfg *Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(renderDSN(cfg))
	if cfg.AdminUsername != "" {
		opts = opts.SetAuth(options.Credential{
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
		})
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return client, nil
}

func (c *mongoConnector) VerifyConnection(ctx context.Context, cfg *Config) error {
	client, err := c.connect(cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	if err := client.Ping(ctx, nil); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}

func (c *mongoConnector) CreateUser(ctx context.Context, cfg *Config, username, password string, statements []string, expiresAt time.Time) error {
	client, err := c.connect(cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	admin := client.Database("admin")
	if len(statements) == 0 {
		// A user with no roles; grants come from creation statements.
		cmd := bson.D{
			{Key: "createUser", Value: username},
			{Key: "pwd", Value: password},
			{Key: "roles", Value: bson.A{}},
		}
		if err := admin.RunCommand(ctx, cmd).Err(); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, err.Error())
		}
		return nil
	}

	for _, statement := range statements {
		rendered := RenderStatement(statement, username, password, expiresAt)
		var cmd bson.D
		if err := bson.UnmarshalExtJSON([]byte(rendered), true, &cmd); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, "invalid mongodb command document: "+err.Error())
		}
		if err := admin.RunCommand(ctx, cmd).Err(); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, err.Error())
		}
	}
	return nil
}

func (c *mongoConnector) RevokeUser(ctx context.Context, cfg *Config, username string, statements []string) error {
	client, err := c.connect(cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	admin := client.Database("admin")
	if len(statements) == 0 {
		if err := admin.RunCommand(ctx, bson.D{{Key: "dropUser", Value: username}}).Err(); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, err.Error())
		}
		return nil
	}

	for _, statement := range statements {
		rendered := RenderStatement(statement, username, "", time.Time{})
		var cmd bson.D
		if err := bson.UnmarshalExtJSON([]byte(rendered), true, &cmd); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, "invalid mongodb command document: "+err.Error())
		}
		if err := admin.RunCommand(ctx, cmd).Err(); err != nil {
			return apperrors.Wrap(apperrors.ErrConnector, err.Error())
		}
	}
	return nil
}

func (c *mongoConnector) RotateRootPassword(ctx context.Context, cfg *Config, newPassword string) error {
	client, err := c.connect(cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	cmd := bson.D{
		{Key: "updateUser", Value: cfg.AdminUsername},
		{Key: "pwd", Value: newPassword},
	}
	if err := client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrConnector, err.Error())
	}
	return nil
}
