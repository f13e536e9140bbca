package specification

import (
	"testing"

	"studyhub-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  "host=localhost user=test dbname=test sslmode=disable",
		PreferSimpleProtocol: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestByUserID(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out model.NoteCanvasState
		return ByUserID{UserID: "u1"}.Apply(tx).Find(&out)
	})

	assert.Contains(t, sql, `"note_canvas_states"`)
	assert.Contains(t, sql, `user_id = 'u1'`)
}

func TestRecentlyUpdated(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []model.NoteCanvasState
		for _, s := range RecentlyUpdated(20, 40) {
			tx = s.Apply(tx)
		}
		return tx.Find(&out)
	})

	assert.Contains(t, sql, "ORDER BY updated_at DESC")
	assert.Contains(t, sql, "LIMIT 20")
	assert.Contains(t, sql, "OFFSET 40")
}

func TestPagination_ZeroMeansUnbounded(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []model.NoteCanvasState
		return Pagination{}.Apply(tx).Find(&out)
	})

	assert.NotContains(t, sql, "LIMIT")
	assert.NotContains(t, sql, "OFFSET")
}
