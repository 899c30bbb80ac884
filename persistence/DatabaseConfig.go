package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

const (
	DriverMysql  = "mysql"
	DriverSqlite = "sqlite3"
)

type DatabaseConfig struct {
	DriverType   string `yaml:"driverType"`
	DriverArgs   string `yaml:"driverArgs"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// ApplyEnv overrides the configured values with DB_DRIVER_TYPE, DB_DRIVER_ARGS and DB_MAX_OPEN_CONNS when set.
func (c *DatabaseConfig) ApplyEnv() error {
	if v := os.Getenv("DB_DRIVER_TYPE"); v != "" {
		c.DriverType = v
	}
	if v := os.Getenv("DB_DRIVER_ARGS"); v != "" {
		c.DriverArgs = v
	}
	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_OPEN_CONNS '%s': %w", v, err)
		}
		c.MaxOpenConns = n
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.DriverType != DriverMysql && c.DriverType != DriverSqlite {
		return fmt.Errorf("unsupported database driver '%s'", c.DriverType)
	}
	if c.DriverArgs == "" {
		return errors.New("database driver args is required")
	}
	return nil
}

// PrepareMysqlDatabase creates the database named in the DSN if it does not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	dsn, err := mysql.ParseDSN(driverArgs)
	if err != nil {
		return err
	}
	databaseName := dsn.DBName
	if databaseName == "" {
		return errors.New("database name not found in driver args")
	}
	dsn.DBName = ""

	db, err := sql.Open(DriverMysql, dsn.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci")
	return err
}
