package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	// FrontendURLEndsWith gates CORS to origins with this suffix.
	FrontendURLEndsWith string

	// Deployment-time chain parameters. BaseURI prefixes minted room URIs;
	// Deployer starts out as the Ownable owner of both marketplaces.
	BaseURI         string
	Deployer        string
	TimelockAddress string

	// Marketplace parameters.
	FeePercentage  uint64
	PeriodDuration int64 // seconds per rented period

	// Governor parameters (delays in blocks, timelock delay in seconds).
	VotingDelay   uint64
	VotingPeriod  uint64
	MinDelay      int64
	QuorumPercent uint64
}

// Defaults mirror the deployed DaoVerse configuration.
const (
	defaultBaseURI        = "ipfs://bafkreidgaxmh45zdo47oss4r7tthz753jjpuhc6o5z5p7kg2b66xorihna"
	defaultTimelock       = "0x000000000000000000000000000000000074696d"
	defaultFeePercentage  = 5
	defaultPeriodDuration = 30 * 24 * 3600
	defaultVotingDelay    = 7200
	defaultVotingPeriod   = 50400
	defaultMinDelay       = 7200
	defaultQuorumPercent  = 4
)

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg := &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		BaseURI:             stringOr(viper.GetString("BASE_URI"), defaultBaseURI),
		Deployer:            viper.GetString("DEPLOYER_ADDRESS"),
		TimelockAddress:     stringOr(viper.GetString("TIMELOCK_ADDRESS"), defaultTimelock),
		FeePercentage:       uint64Or("FEE_PERCENTAGE", defaultFeePercentage),
		PeriodDuration:      int64Or("PERIOD_DURATION_SECONDS", defaultPeriodDuration),
		VotingDelay:         uint64Or("VOTING_DELAY_BLOCKS", defaultVotingDelay),
		VotingPeriod:        uint64Or("VOTING_PERIOD_BLOCKS", defaultVotingPeriod),
		MinDelay:            int64Or("MIN_DELAY_SECONDS", defaultMinDelay),
		QuorumPercent:       uint64Or("QUORUM_PERCENT", defaultQuorumPercent),
	}

	if cfg.FeePercentage > 100 {
		return nil, fmt.Errorf("FEE_PERCENTAGE must be in [0,100], got %d", cfg.FeePercentage)
	}
	if cfg.QuorumPercent > 100 {
		return nil, fmt.Errorf("QUORUM_PERCENT must be in [0,100], got %d", cfg.QuorumPercent)
	}

	return cfg, nil
}

func stringOr(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func int64Or(key string, def int64) int64 {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetInt64(key)
}

func uint64Or(key string, def uint64) uint64 {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetUint64(key)
}
