package connector

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// NewPostgres creates the PostgreSQL connector. Connection URLs use the
// postgres:// scheme understood by lib/pq.
func NewPostgres() Connector {
	return &sqlConnector{
		driverName: "postgres",
		defaultRevoke: func(username string) []string {
			quoted := pq.QuoteIdentifier(username)
			return []string{
				fmt.Sprintf("REASSIGN OWNED BY %s TO CURRENT_USER", quoted),
				fmt.Sprintf("DROP OWNED BY %s", quoted),
				fmt.Sprintf("DROP ROLE IF EXISTS %s", quoted),
			}
		},
		rotateStatement: func(username, password string) string {
			return fmt.Sprintf("ALTER ROLE %s WITH PASSWORD %s",
				pq.QuoteIdentifier(username), quoteLiteral(password))
		},
	}
}

// quoteLiteral escapes a string literal for direct embedding; placeholders
// are unusable in role DDL.
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
