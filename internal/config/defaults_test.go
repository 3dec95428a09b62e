package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultComputeURL, cfg.Compute.URL)
	assert.Equal(t, ModeMock, cfg.Simulation.Mode)
	assert.Equal(t, DefaultKafkaJobTopic, cfg.Kafka.JobTopic)
	assert.Equal(t, DefaultKafkaEventTopic, cfg.Kafka.EventTopic)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Greater(t, cfg.Server.WriteTimeout, cfg.Compute.Timeout)
	assert.Empty(t, cfg.Compute.APIKey)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Compute.Timeout = time.Minute
	cfg.Simulation.Mode = ModeCompute
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Compute.Timeout)
	assert.Equal(t, ModeCompute, cfg.Simulation.Mode)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
