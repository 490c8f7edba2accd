package connector

import (
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

// NewMSSQL creates the SQL Server connector. Connection URLs use the
// sqlserver:// scheme.
func NewMSSQL() Connector {
	return &sqlConnector{
		driverName: "sqlserver",
		defaultRevoke: func(username string) []string {
			quoted := quoteMSSQLIdentifier(username)
			return []string{
				fmt.Sprintf("DROP USER IF EXISTS %s", quoted),
				fmt.Sprintf("IF EXISTS (SELECT name FROM sys.server_principals WHERE name = N%s) DROP LOGIN %s",
					quoteLiteral(username), quoted),
			}
		},
		rotateStatement: func(username, password string) string {
			return fmt.Sprintf("ALTER LOGIN %s WITH PASSWORD = %s",
				quoteMSSQLIdentifier(username), quoteLiteral(password))
		},
	}
}

func quoteMSSQLIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
