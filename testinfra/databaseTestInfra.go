package testinfra

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/google/uuid"
)

type TestDatabase struct {
	TestDatabaseName string
	DS               *persistence.DataSourceManager

	file string
}

// StartTestDatabase uses a throwaway sqlite file, or a fresh MySQL database when
// TEST_MYSQL_SERVICE is set, e.g. TEST_MYSQL_SERVICE=root:root@(127.0.0.1:3306).
// The started manager becomes persistence.ActiveDataSourceManager.
func StartTestDatabase(baseName string, models ...interface{}) *TestDatabase {
	var testDatabase *TestDatabase
	if mysqlSvc := os.Getenv("TEST_MYSQL_SERVICE"); mysqlSvc != "" {
		testDatabase = startMysqlTestDatabase(baseName, mysqlSvc)
	} else {
		testDatabase = startSqliteTestDatabase(baseName)
	}

	if len(models) > 0 {
		if err := testDatabase.DS.GormDB(context.Background()).AutoMigrate(models...).Error; err != nil {
			StopTestDatabase(testDatabase)
			log.Fatalf("failed to migrate test database %v\n", err)
		}
	}
	persistence.ActiveDataSourceManager = testDatabase.DS
	return testDatabase
}

func startSqliteTestDatabase(baseName string) *TestDatabase {
	databaseName := baseName + "_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	file := filepath.Join(os.TempDir(), databaseName+".db")

	dbConfig := &persistence.DatabaseConfig{DriverType: persistence.DriverSqlite, DriverArgs: file + "?_loc=UTC"}
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		defer ds.Stop()
		log.Fatalf("database connection failed %v\n", err)
	}
	return &TestDatabase{TestDatabaseName: databaseName, DS: ds, file: file}
}

func startMysqlTestDatabase(baseName, mysqlSvc string) *TestDatabase {
	databaseName := baseName + "_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	dbConfig := &persistence.DatabaseConfig{
		DriverType: persistence.DriverMysql,
		DriverArgs: mysqlSvc + "/" + databaseName + "?charset=utf8mb4&parseTime=True&loc=UTC&timeout=5s",
	}

	// create database (no conflict)
	if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
		log.Fatalf("failed to prepare database %v\n", err)
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		defer ds.Stop()
		log.Fatalf("database connection failed %v\n", err)
	}
	return &TestDatabase{TestDatabaseName: databaseName, DS: ds}
}

func StopTestDatabase(testDatabase *TestDatabase) {
	if testDatabase == nil || testDatabase.DS == nil {
		return
	}
	if testDatabase.file == "" {
		if db := testDatabase.DS.GormDB(context.Background()); db != nil {
			if err := db.Exec("DROP DATABASE " + testDatabase.TestDatabaseName).Error; err != nil {
				log.Println("failed to drop test database: " + testDatabase.TestDatabaseName)
			} else {
				log.Println("test database " + testDatabase.TestDatabaseName + " dropped")
			}
		}
	}

	testDatabase.DS.Stop()
	if testDatabase.file != "" {
		_ = os.Remove(testDatabase.file)
	}
	if persistence.ActiveDataSourceManager == testDatabase.DS {
		persistence.ActiveDataSourceManager = nil
	}
}
