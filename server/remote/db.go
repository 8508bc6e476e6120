package remote

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/utils"
	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "rightguard.db"

// Store is the client of the hosted relational backend. Every record is keyed by
// an opaque user id issued by the auth provider.
type Store struct {
	db   *gorm.DB
	logg *zap.SugaredLogger
}

// Postgres returns the production dialector
func Postgres(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

// Sqlite returns an encrypted sqlite dialector, used for dev & tests.
// The database file lives in <rootDir>/db.
func Sqlite(passPhrase string, rootDir string) (gorm.Dialector, error) {
	dsn, err := dbDSN(passPhrase, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
	}
	return sqliteEncrypt.Open(dsn), nil
}

// Open connects with dialector and auto-migrates the schema
func Open(dialector gorm.Dialector, logg *zap.SugaredLogger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(&models.User{}, &models.Incident{}, &models.EmergencyContact{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return &Store{db: db, logg: logger.OrDefault(logg)}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dbDSN(passPhrase string, rootDir string) (string, error) {
	dbDir, err := DbDirectory(rootDir)
	if err != nil {
		return "", err
	}

	dbName := fmt.Sprintf("file:%v", filepath.Join(dbDir, DB_NAME))

	return fmt.Sprintf(
		"%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbName,
		passPhrase,
	), nil
}

func DbDirectory(rootDir string) (string, error) {
	dbDir := filepath.Join(rootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
