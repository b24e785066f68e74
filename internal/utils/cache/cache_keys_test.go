package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	key := GenerateKey(EntityBalance, KeyStudent, 12)
	assert.Equal(t, "balance:student:12", key)

	entity, keyType, value, ok := ParseKey(key)
	assert.True(t, ok)
	assert.Equal(t, EntityBalance, entity)
	assert.Equal(t, KeyStudent, keyType)
	assert.Equal(t, "12", value)

	_, _, _, ok = ParseKey("broken")
	assert.False(t, ok)
}
