package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvadminer/kvadminer/internal/config"
)

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "kvadminer version "+version+"\n", out.String())
}

func TestFactoryConfig(t *testing.T) {
	got := factoryConfig(&config.Config{
		DialTimeout:       time.Second,
		StoreReadTimeout:  2 * time.Second,
		StoreWriteTimeout: 7 * time.Second,
		StorePoolSize:     3,
	})
	assert.Equal(t, time.Second, got.DialTimeout)
	assert.Equal(t, 2*time.Second, got.ReadTimeout)
	assert.Equal(t, 7*time.Second, got.WriteTimeout)
	assert.Equal(t, 3, got.PoolSize)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		ListenAddr:      "127.0.0.1:0",
		SessionTimeout:  time.Minute,
		SweepInterval:   10 * time.Millisecond,
		ScanCount:       100,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
		DialTimeout:     time.Second,
		StorePoolSize:   1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	cfg := &config.Config{
		ListenAddr:      "256.0.0.1:bad",
		SessionTimeout:  time.Minute,
		SweepInterval:   time.Second,
		ShutdownTimeout: time.Second,
	}

	err := serve(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
