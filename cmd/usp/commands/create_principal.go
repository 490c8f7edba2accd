package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	authUseCase "github.com/usphq/usp/internal/auth/usecase"
)

// RunCreatePrincipal creates a principal and prints its generated login
// secret exactly once. Used to bootstrap the first administrator before any
// token exists; later principals are usually created over the API.
func RunCreatePrincipal(
	ctx context.Context,
	principalUC authUseCase.PrincipalUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
	roles []string,
	attributes map[string]string,
) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: principal name is required", ErrUsage)
	}
	if len(roles) == 0 {
		return fmt.Errorf("%w: at least one role is required", ErrUsage)
	}

	logger.Info("creating principal",
		slog.String("name", name),
		slog.Any("roles", roles),
	)

	output, err := principalUC.Create(ctx, &authDomain.CreatePrincipalInput{
		Name:       name,
		Roles:      roles,
		Attributes: attributes,
		Active:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}

	fmt.Fprintf(writer, "Principal ID: %s\n", output.ID)
	fmt.Fprintf(writer, "Secret:       %s\n", output.PlainSecret)
	fmt.Fprintln(writer, "Store the secret now; it is not shown again.")
	return nil
}

// ParseAttributes converts repeated key=value flags into a map.
func ParseAttributes(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	attributes := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: attribute %q must be key=value", ErrUsage, pair)
		}
		attributes[key] = value
	}
	return attributes, nil
}
