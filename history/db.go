package history

import (
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mensylisir/xmdeploy/common"
	"github.com/mensylisir/xmdeploy/util"
)

// DefaultPath returns ~/.xmdeploy/history.db.
func DefaultPath() (string, error) {
	home, err := util.Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(common.GetAppDir(home), "history.db"), nil
}

// InitDB opens the sqlite database at path, creating its directory, and
// migrates the schema. A leading "~/" in path is expanded.
func InitDB(path string) (*gorm.DB, error) {
	path, err := util.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, errors.Wrap(err, "failed to create history directory")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history database %s", path)
	}

	if err := db.AutoMigrate(&Deployment{}); err != nil {
		_ = CloseDB(db)
		return nil, errors.Wrap(err, "failed to migrate history schema")
	}
	return db, nil
}

func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
