package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/shop?pool_max_conns=4")
	require.NoError(t, err)

	applyOptions(cfg, PoolOptions{})
	assert.EqualValues(t, 4, cfg.MaxConns)
	assert.Equal(t, defaultMaxConnIdleTime, cfg.MaxConnIdleTime)
	assert.Equal(t, defaultMaxConnLifetime, cfg.MaxConnLifetime)

	applyOptions(cfg, PoolOptions{MaxConns: 20, MaxConnLifetime: time.Hour})
	assert.EqualValues(t, 20, cfg.MaxConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
}
