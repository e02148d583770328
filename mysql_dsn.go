package main

import (
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// mysqlDSNWithReadOptions normalizes a DSN for catalog reads: parsed times in
// UTC, client side interpolation and the requested connection charset.
func mysqlDSNWithReadOptions(baseDSN, charset string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC
	if charset != "" {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["charset"] = charset
	}
	return cfg.FormatDSN(), nil
}

// mysqlDBName returns the database named in dsn.
func mysqlDBName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	if cfg.DBName == "" {
		return "", errors.New("cannot extract database name from DSN: empty name")
	}
	return cfg.DBName, nil
}

// quoteMySQLIdent backquotes name for use in SHOW CREATE statements.
func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
