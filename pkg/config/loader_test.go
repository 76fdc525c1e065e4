package config_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/config"
)

type otpConfig struct {
	Length    int    `env:"CONFIG_TEST_OTP_LENGTH" envDefault:"6"`
	ExpiresIn string `env:"CONFIG_TEST_OTP_EXPIRES_IN" envDefault:"600s"`
}

type cachedConfig struct {
	Value string `env:"CONFIG_TEST_CACHED" envDefault:"first"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg otpConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 6, cfg.Length)
	assert.Equal(t, "600s", cfg.ExpiresIn)
}

func TestLoad_CachesPerType(t *testing.T) {
	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("CONFIG_TEST_CACHED", "second")

	var again cachedConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, first.Value, again.Value)
}

func TestLoad_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]otpConfig, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, config.Load(&results[i]))
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 6, r.Length)
	}
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *otpConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}
