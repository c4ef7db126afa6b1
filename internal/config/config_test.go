package config

import (
	"testing"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultForecastConfig(t *testing.T) {
	cfg := DefaultForecastConfig()

	assert.Equal(t, 7, cfg.HorizonDays)
	assert.Equal(t, 90, cfg.MaxHorizonDays)
	assert.InDelta(t, 1.65, cfg.SafetyStockMultiplier, 1e-9)
	assert.Equal(t, 0, cfg.ReviewPeriodDays)
	assert.Equal(t, 7, cfg.ReviewPeriod())
	assert.InDelta(t, 2.0, cfg.OverstockMultiplier, 1e-9)
	assert.Equal(t, 14, cfg.MinTrainingPoints)
	require.NoError(t, cfg.Validate())
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("FORECAST_HORIZON_DAYS", 14)
	v.Set("REVIEW_PERIOD_DAYS", 10)
	v.Set("DB_DRIVER", "memory")

	cfg := FromViper(v)

	assert.Equal(t, 14, cfg.Forecast.HorizonDays)
	assert.Equal(t, 10, cfg.Forecast.ReviewPeriod())
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.False(t, cfg.Forecast.FallbackNaive)
	assert.True(t, cfg.Schedule.Retrain)
	assert.Equal(t, "0 0 2 * * *", cfg.Schedule.Spec)
}

func TestForecastConfigValidate(t *testing.T) {
	cases := map[string]func(c *ForecastConfig){
		"zero horizon":           func(c *ForecastConfig) { c.HorizonDays = 0 },
		"horizon above max":      func(c *ForecastConfig) { c.HorizonDays = c.MaxHorizonDays + 1 },
		"zero max horizon":       func(c *ForecastConfig) { c.MaxHorizonDays = 0 },
		"negative safety":        func(c *ForecastConfig) { c.SafetyStockMultiplier = -1 },
		"negative review period": func(c *ForecastConfig) { c.ReviewPeriodDays = -3 },
		"zero overstock":         func(c *ForecastConfig) { c.OverstockMultiplier = 0 },
		"tiny training set":      func(c *ForecastConfig) { c.MinTrainingPoints = 1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultForecastConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfiguration)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "restock", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=restock sslmode=disable", cfg.PostgresDSN())
}
