package redis

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newUnconnectedStore(prefix string, ttl time.Duration, limit int) *ResultStore {
	client := &Client{rdb: goredis.NewClient(&goredis.Options{Addr: "localhost:0"})}
	return NewResultStore(client, prefix, ttl, limit)
}

func TestNewResultStore_Defaults(t *testing.T) {
	t.Parallel()

	s := newUnconnectedStore("", 0, 0)
	assert.Equal(t, "sentinel", s.keyPrefix)
	assert.Equal(t, 100, s.historyLimit)
}

func TestResultStore_Keys(t *testing.T) {
	t.Parallel()

	s := newUnconnectedStore("sentinel", time.Minute, 50)
	assert.Equal(t, "sentinel:result:lst-42", s.resultKey("lst-42"))
	assert.Equal(t, "sentinel:history", s.historyKey())
}

func TestResultStore_CustomPrefix(t *testing.T) {
	t.Parallel()

	s := newUnconnectedStore("staging", time.Minute, 50)
	assert.Equal(t, "staging:result:lst-1", s.resultKey("lst-1"))
	assert.Equal(t, "staging:history", s.historyKey())
}
