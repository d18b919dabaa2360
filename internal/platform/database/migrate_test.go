package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/filegov?sslmode=disable", MigrateURL("postgres://u:p@db:5432/filegov?sslmode=disable"))
	assert.Equal(t, "pgx5://db/filegov", MigrateURL("postgresql://db/filegov"))
	assert.Equal(t, "pgx5://db/filegov", MigrateURL("pgx5://db/filegov"))
}
