package database

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

type QuantsimDatabase interface {
	MetricsDatabase
	RunDatabase
}

type databaseImplementation struct {
	gormDb *gorm.DB
}

func NewDBConnection(dbConfig datamodels.PostgresConfig) (QuantsimDatabase, error) {
	dbConnString := MakeConnectionString(&dbConfig)

	gormConfig := &gorm.Config{
		Logger: slogGorm.New(),
	}

	gormDb, err := gorm.Open(postgres.Open(dbConnString), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create gorm engine")
	}

	slog.Info("Connected to database", "host", dbConfig.Host, "database", dbConfig.Database, "user", dbConfig.User)

	return NewFromGorm(gormDb), nil
}

// NewFromGorm wraps an already opened gorm handle.
func NewFromGorm(gormDb *gorm.DB) QuantsimDatabase {
	return &databaseImplementation{
		gormDb: gormDb,
	}
}

func MakeConnectionString(dbConfig *datamodels.PostgresConfig) string {
	if dbConfig.URI != "" { // If url is provided, use it
		return dbConfig.URI
	}

	mode := dbConfig.SSL.Mode
	if mode == "" {
		mode = "disable"
	}
	ssl := "sslmode=" + mode

	if mode != "disable" {
		sslFiles := []struct {
			param   string
			content string
		}{
			{"sslcert", dbConfig.SSL.Cert},
			{"sslkey", dbConfig.SSL.Key},
			{"sslrootcert", dbConfig.SSL.CA},
		}

		for _, sslFile := range sslFiles {
			if sslFile.content == "" {
				continue
			}
			file, err := writeCertificate(sslFile.content, sslFile.param+".pem")
			if err != nil {
				slog.Error("Error writing certificate to file", "param", sslFile.param, "error", err)
				continue
			}
			ssl += "&" + sslFile.param + "=" + file
		}
	}

	hostPort := net.JoinHostPort(dbConfig.Host, strconv.Itoa(dbConfig.Port))

	if dbConfig.Password == "" {
		slog.Warn("No password provided for database connection, using empty password")
		return fmt.Sprintf("postgres://%s@%s/%s?search_path=public&%s",
			dbConfig.User,
			hostPort,
			dbConfig.Database,
			ssl,
		)
	}

	return fmt.Sprintf("postgres://%s:%s@%s/%s?search_path=public&%s",
		dbConfig.User,
		dbConfig.Password,
		hostPort,
		dbConfig.Database,
		ssl,
	)
}

func writeCertificate(content string, outFile string) (string, error) {
	tempFile, err := os.CreateTemp("", outFile)
	if err != nil {
		return "", err
	}

	if _, err = tempFile.WriteString(content); err != nil {
		tempFile.Close()
		return "", err
	}

	if err = tempFile.Close(); err != nil {
		slog.Warn("Error closing certificate file", "file", outFile, "error", err)
	}

	return tempFile.Name(), nil
}
