package persistence

import (
	"database/sql"
	"errors"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

const (
	DriverMysql  = "mysql"
	DriverSqlite = "sqlite3"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv DB_DRIVER (mysql|sqlite3), DB_DRIVER_ARGS
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driverType := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driverType == "" {
		driverType = DriverMysql
	}
	driverArgs := strings.TrimSpace(os.Getenv("DB_DRIVER_ARGS"))
	return NewDatabaseConfig(driverType, driverArgs)
}

func NewDatabaseConfig(driverType, driverArgs string) (*DatabaseConfig, error) {
	if driverType != DriverMysql && driverType != DriverSqlite {
		return nil, errors.New("unsupported database driver: " + driverType)
	}
	if driverArgs == "" {
		return nil, errors.New("database driver args is required")
	}
	return &DatabaseConfig{DriverType: driverType, DriverArgs: driverArgs}, nil
}

// PrepareMysqlDatabase creates the database named in the dsn if it does not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	cfg, err := mysql.ParseDSN(driverArgs)
	if err != nil {
		return err
	}
	databaseName := cfg.DBName
	if databaseName == "" {
		return errors.New("database name is missing in dsn")
	}
	cfg.DBName = ""

	db, err := sql.Open(DriverMysql, cfg.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` DEFAULT CHARACTER SET utf8mb4"); err != nil {
		return err
	}
	logrus.Infof("database %s is ready", databaseName)
	return nil
}
