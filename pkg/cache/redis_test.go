package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationsKey(t *testing.T) {
	assert.Equal(t, "notifications:u-1", NotificationsKey("u-1"))
}
