package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	assert.True(t, Anonymous.IsAnonymous())
	assert.Empty(t, Anonymous.GroupIDs())

	id := Identity{ID: "u1", Groups: []Group{{ID: "g1", Name: "Moderators"}, {ID: "g2", Name: "Alumni"}}}
	assert.False(t, id.IsAnonymous())
	assert.Equal(t, []string{"g1", "g2"}, id.GroupIDs())
	assert.True(t, id.InGroup("Alumni"))
	assert.False(t, id.InGroup("alumni"))
}
