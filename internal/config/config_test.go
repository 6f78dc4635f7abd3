package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	for _, key := range []string{
		"STORAGE_TYPE", "DATABASE_URL", "TICK_INTERVAL", "FACT_INTERVAL",
		"QUIZ_ALLOW_RETRY", "QUIZ_MAX_ATTEMPTS", "DISCORD_TOKEN", "DISCORD_APP_ID",
	} {
		s.T().Setenv(key, "")
	}
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := FromEnv()
	s.Require().NoError(err)

	s.Equal(StorageMemory, cfg.StorageType)
	s.Equal(10*time.Second, cfg.TickInterval)
	s.Equal(15*time.Second, cfg.FactInterval)
	s.Equal(60*time.Second, cfg.PartySweepInterval)
	s.True(cfg.QuizAllowRetry)
	s.Equal(0, cfg.QuizMaxAttempts)
	s.True(cfg.IsDevelopment())
}

func (s *ConfigTestSuite) TestOverrides() {
	s.T().Setenv("TICK_INTERVAL", "2s")
	s.T().Setenv("QUIZ_ALLOW_RETRY", "false")
	s.T().Setenv("QUIZ_MAX_ATTEMPTS", "3")

	cfg, err := FromEnv()
	s.Require().NoError(err)

	s.Equal(2*time.Second, cfg.TickInterval)
	s.False(cfg.QuizAllowRetry)
	s.Equal(3, cfg.QuizMaxAttempts)
}

func (s *ConfigTestSuite) TestValidation() {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "Unknown storage", env: map[string]string{"STORAGE_TYPE": "redis"}},
		{name: "Postgres without URL", env: map[string]string{"STORAGE_TYPE": "postgres"}},
		{name: "Bad duration", env: map[string]string{"TICK_INTERVAL": "soon"}},
		{name: "Zero tick", env: map[string]string{"TICK_INTERVAL": "0s"}},
		{name: "Negative attempts", env: map[string]string{"QUIZ_MAX_ATTEMPTS": "-1"}},
		{name: "Discord without app", env: map[string]string{"DISCORD_TOKEN": "abc"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			for k, v := range tc.env {
				s.T().Setenv(k, v)
			}
			_, err := FromEnv()
			s.Error(err)
		})
	}
}
