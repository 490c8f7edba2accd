package http

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/usphq/usp/internal/httputil"
)

// Authorizer is the decision-point slice the enforcement middleware consults.
type Authorizer interface {
	Allow(ctx context.Context, action, resourceType, resourceID string) error
}

// ResourceFunc derives the resource id for a decision from the matched route.
type ResourceFunc func(c *gin.Context) string

// ResourceParam uses the named route parameter as the resource id.
func ResourceParam(name string) ResourceFunc {
	return func(c *gin.Context) string {
		return c.Param(name)
	}
}

// ResourceParams joins route parameters with slashes, mirroring the path
// layout HCL policies match against.
func ResourceParams(names ...string) ResourceFunc {
	return func(c *gin.Context) string {
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, c.Param(name))
		}
		return strings.Join(parts, "/")
	}
}

// ResourceWildcard uses the named wildcard parameter, stripping the leading
// slash gin leaves on it.
func ResourceWildcard(name string) ResourceFunc {
	return func(c *gin.Context) string {
		return strings.TrimPrefix(c.Param(name), "/")
	}
}

// ResourceNone enforces against the bare resource type.
func ResourceNone(*gin.Context) string {
	return ""
}

// Require asks the evaluator for a decision before the handler runs. Anything
// short of an unconditional permit aborts the request; the response does not
// reveal whether the resource exists.
func Require(authorizer Authorizer, action, resourceType string, resource ResourceFunc, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authorizer.Allow(c.Request.Context(), action, resourceType, resource(c)); err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}
