package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully-defaulted config that passes Validate.
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.User = "sentinel"
	return cfg
}

func TestValidate_DefaultedConfigIsValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsBadServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownServerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "production"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresDatabaseUser(t *testing.T) {
	cfg := validConfig()
	cfg.Database.User = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownEmbeddingProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "word2vec"
	assert.Error(t, cfg.Validate())
}

func TestValidate_OpenAIProviderRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg.Embedding.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MilvusAddrRequiredOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Milvus.Enabled = true
	cfg.Milvus.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg.Milvus.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EngineWeightBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.BrandWeight = 1.5
	assert.Error(t, cfg.Validate())

	cfg.Engine.BrandWeight = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_EngineThresholdBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.PriceDeviationRatio = 1.0
	assert.Error(t, cfg.Validate())

	cfg.Engine.PriceDeviationRatio = 0.5
	cfg.Engine.SimilarityFloor = -0.2
	assert.Error(t, cfg.Validate())
}

func TestApplyDefaults_EngineValuesMatchDocumentedDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 5, cfg.Engine.TopK)
	assert.Equal(t, 0.35, cfg.Engine.PriceWeight)
	assert.Equal(t, 0.30, cfg.Engine.BrandWeight)
	assert.Equal(t, 0.15, cfg.Engine.DescriptionWeight)
	assert.Equal(t, 0.20, cfg.Engine.DivergenceWeight)
	assert.Equal(t, 0.3, cfg.Engine.PriceFloorFraction)
	assert.Equal(t, 0.5, cfg.Engine.PriceDeviationRatio)
	assert.Equal(t, 0.5, cfg.Engine.SimilarityFloor)
	assert.NotEmpty(t, cfg.Engine.KnownBrands)
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Engine.TopK = 11
	cfg.Engine.KnownBrands = []string{"Acme"}
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 11, cfg.Engine.TopK)
	assert.Equal(t, []string{"Acme"}, cfg.Engine.KnownBrands)
}

func TestApplyDefaults_NilConfigIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
