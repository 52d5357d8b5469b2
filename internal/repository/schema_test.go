package repository

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationUpPath = "../../migrations/000001_init.up.sql"

// tableDDL вырезает из миграции тело CREATE TABLE для заданной таблицы.
func tableDDL(t *testing.T, schema, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(schema, marker)
	require.GreaterOrEqual(t, start, 0, "миграция не создает таблицу %s", table)
	body := schema[start+len(marker):]
	end := strings.Index(body, ");")
	require.GreaterOrEqual(t, end, 0, "незакрытое определение таблицы %s", table)
	return body[:end]
}

// Запросы репозиториев перечисляют колонки явно, а sqlmock воспроизводит
// те колонки, которые объявил тест — расхождение между SELECT и миграцией
// моки не ловят. Этот тест сверяет DDL с колонками, которые читает код.
func TestMigrationSchemaColumns(t *testing.T) {
	raw, err := os.ReadFile(migrationUpPath)
	require.NoError(t, err)
	schema := string(raw)

	tests := []struct {
		table   string
		columns []string
	}{
		{
			table:   "users",
			columns: []string{"id", "username", "password_hash", "created_at", "updated_at"},
		},
		{
			table: "projects",
			columns: []string{
				"id", "title", "description", "owner_id", "is_public",
				"share_link", "created_at", "updated_at",
			},
		},
		{
			table:   "project_shares",
			columns: []string{"project_id", "user_id", "created_at"},
		},
		{
			table: "project_versions",
			columns: []string{
				"id", "project_id", "version_number", "description", "created_at",
				"created_by", "object_key", "file_size", "file_type", "is_latest",
			},
		},
		{
			table:   "comments",
			columns: []string{"id", "project_id", "author_id", "content", "created_at", "updated_at"},
		},
	}

	for _, tt := range tests {
		t.Run("Таблица "+tt.table, func(t *testing.T) {
			ddl := tableDDL(t, schema, tt.table)
			for _, column := range tt.columns {
				pattern := regexp.MustCompile(`(?m)^\s*` + column + `\s`)
				assert.True(t, pattern.MatchString(ddl),
					"в таблице %s отсутствует колонка %s", tt.table, column)
			}
		})
	}
}

// Репозиторий версий различает нарушения уникальности (23505) по именам
// ограничений — миграция обязана создавать их ровно с этими именами.
func TestMigrationConstraintNames(t *testing.T) {
	raw, err := os.ReadFile(migrationUpPath)
	require.NoError(t, err)
	schema := string(raw)

	assert.Contains(t, schema, "CONSTRAINT "+versionNumberConstraint)
	assert.Contains(t, schema, "CREATE UNIQUE INDEX IF NOT EXISTS "+latestIndexConstraint)
}
