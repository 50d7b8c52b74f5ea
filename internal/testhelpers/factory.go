package testhelpers

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	g "github.com/onsi/gomega"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"navexport/internal/db"
)

// OpenTestDB opens a private in-memory sqlite database with the schema migrated.
func OpenTestDB() *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	g.Expect(err).NotTo(g.HaveOccurred())

	g.Expect(db.Migrate(conn)).To(g.Succeed())
	return conn
}
