package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/health-tracker/internal/config"
)

func TestReportConfigError(t *testing.T) {
	var buf bytes.Buffer
	missing := fmt.Errorf("startup: %w", &config.ConfigError{Missing: []string{"JWT_SECRET"}})
	assert.Equal(t, 2, reportConfigError(&buf, missing))
	assert.Contains(t, buf.String(), "missing required env vars: JWT_SECRET")
	assert.Contains(t, buf.String(), "in .env")

	buf.Reset()
	assert.Equal(t, 1, reportConfigError(&buf, errors.New("parse env: bad duration")))
	assert.Equal(t, "load config: parse env: bad duration\n", buf.String())
}

func TestOpenStore_MemoryAndUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db, closeFn, err := openStore(ctx, config.StoreConfig{Driver: config.DriverMemory})
	assert.NoError(t, err)
	assert.NotNil(t, db)
	closeFn()

	_, _, err = openStore(ctx, config.StoreConfig{Driver: "sqlite"})
	assert.Error(t, err)
}
