package connector

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// NewMySQL creates the MySQL connector. Connection URLs use the go-sql-driver
// DSN form, e.g. {{username}}:{{password}}@tcp(host:3306)/.
func NewMySQL() Connector {
	return &sqlConnector{
		driverName: "mysql",
		defaultRevoke: func(username string) []string {
			return []string{
				fmt.Sprintf("DROP USER IF EXISTS %s@'%%'", quoteMySQLIdentifier(username)),
			}
		},
		rotateStatement: func(username, password string) string {
			return fmt.Sprintf("ALTER USER %s@'%%' IDENTIFIED BY %s",
				quoteMySQLIdentifier(username), quoteLiteral(password))
		},
	}
}

func quoteMySQLIdentifier(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
