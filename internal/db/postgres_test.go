package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddedSchemaCoversCoreTables(t *testing.T) {
	assert.NotEmpty(t, schemaSQL)
	for _, table := range []string{"players", "titan_spawns", "pois", "pvp_matches", "matchmaking_queue"} {
		assert.Contains(t, schemaSQL, table)
	}
}
