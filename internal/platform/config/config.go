// Package config loads organchain settings from defaults, an optional YAML
// file and ORGANCHAIN_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dErrors "organchain/pkg/domain-errors"
)

// Config is the full settings tree shared by cmd/server and cmd/donor.
type Config struct {
	Log      Log         `yaml:"log"`
	Server   Server      `yaml:"server"`
	Ledger   Ledger      `yaml:"ledger"`
	Wallet   Wallet      `yaml:"wallet"`
	Profile  Profile     `yaml:"profile"`
	Redis    RedisConfig `yaml:"redis"`
	Database Database    `yaml:"database"`
	Audit    Audit       `yaml:"audit"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Server captures profile-store HTTP server configuration.
type Server struct {
	Addr          string `yaml:"addr"`
	Store         string `yaml:"store"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
	JWTIssuer     string `yaml:"jwt_issuer"`
	JWTAudience   string `yaml:"jwt_audience"`
	AdminToken    string `yaml:"admin_token"`
}

// Ledger configures the registry contract and how to reach it.
type Ledger struct {
	Transport string `yaml:"transport"`
	// ContractAddress names the deployed registry contract (the chaincode
	// name on Fabric). Required.
	ContractAddress string        `yaml:"contract_address"`
	Channel         string        `yaml:"channel"`
	PeerEndpoint    string        `yaml:"peer_endpoint"`
	PeerHostAlias   string        `yaml:"peer_host_alias"`
	TLSCertPath     string        `yaml:"tls_cert_path"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`
	SubmitTimeout   time.Duration `yaml:"submit_timeout"`
	EvaluateTimeout time.Duration `yaml:"evaluate_timeout"`
	// ConfirmDelay is how long the in-process ledger holds a transaction
	// before including it.
	ConfirmDelay time.Duration `yaml:"confirm_delay"`
}

type Wallet struct {
	Backend     string `yaml:"backend"`
	KeystoreDir string `yaml:"keystore_dir"`
	MSPID       string `yaml:"msp_id"`
	// Account preselects a keystore account by address.
	Account string `yaml:"account"`
}

// Profile configures the profile-store client used by the donor controller.
type Profile struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	ClientID         string        `yaml:"client_id"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// PendingTTL bounds how long an unconfirmed transaction stays journaled.
	PendingTTL time.Duration `yaml:"pending_ttl"`
}

type Database struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type Audit struct {
	Sink    string   `yaml:"sink"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Buffer  int      `yaml:"buffer"`
}

// Defaults returns a configuration suitable for local development against
// in-process backends. The contract address is deliberately left empty.
func Defaults() Config {
	return Config{
		Log: Log{Level: "info", Format: "json"},
		Server: Server{
			Addr:        ":8080",
			Store:       "memory",
			JWTIssuer:   "organchain-donor",
			JWTAudience: "organchain-profile-store",
		},
		Ledger: Ledger{
			Transport:       "memory",
			Channel:         "mychannel",
			ConfirmTimeout:  2 * time.Minute,
			SubmitTimeout:   30 * time.Second,
			EvaluateTimeout: 10 * time.Second,
			ConfirmDelay:    500 * time.Millisecond,
		},
		Wallet: Wallet{Backend: "memory", MSPID: "Org1MSP"},
		Profile: Profile{
			BaseURL:          "http://localhost:8080",
			Timeout:          5 * time.Second,
			ClientID:         "organchain-donor",
			TokenTTL:         time.Minute,
			FailureThreshold: 5,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PendingTTL:   24 * time.Hour,
		},
		Database: Database{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Audit: Audit{Sink: "memory", Topic: "organchain.audit", Buffer: 256},
	}
}

// Load reads path (when non-empty) over the defaults, then applies the
// environment on top.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup("ORGANCHAIN_" + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup("ORGANCHAIN_" + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup("ORGANCHAIN_" + key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	str("ADDR", &cfg.Server.Addr)
	str("STORE", &cfg.Server.Store)
	str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	str("JWT_ISSUER", &cfg.Server.JWTIssuer)
	str("JWT_AUDIENCE", &cfg.Server.JWTAudience)
	str("ADMIN_TOKEN", &cfg.Server.AdminToken)

	str("LEDGER_TRANSPORT", &cfg.Ledger.Transport)
	str("CONTRACT_ADDRESS", &cfg.Ledger.ContractAddress)
	str("LEDGER_CHANNEL", &cfg.Ledger.Channel)
	str("LEDGER_PEER_ENDPOINT", &cfg.Ledger.PeerEndpoint)
	str("LEDGER_PEER_HOST_ALIAS", &cfg.Ledger.PeerHostAlias)
	str("LEDGER_TLS_CERT", &cfg.Ledger.TLSCertPath)
	dur("LEDGER_CONFIRM_TIMEOUT", &cfg.Ledger.ConfirmTimeout)
	dur("LEDGER_SUBMIT_TIMEOUT", &cfg.Ledger.SubmitTimeout)
	dur("LEDGER_EVALUATE_TIMEOUT", &cfg.Ledger.EvaluateTimeout)
	dur("LEDGER_CONFIRM_DELAY", &cfg.Ledger.ConfirmDelay)

	str("WALLET_BACKEND", &cfg.Wallet.Backend)
	str("WALLET_KEYSTORE_DIR", &cfg.Wallet.KeystoreDir)
	str("WALLET_MSP_ID", &cfg.Wallet.MSPID)
	str("WALLET_ACCOUNT", &cfg.Wallet.Account)

	str("PROFILE_URL", &cfg.Profile.BaseURL)
	dur("PROFILE_TIMEOUT", &cfg.Profile.Timeout)
	str("PROFILE_CLIENT_ID", &cfg.Profile.ClientID)
	dur("PROFILE_TOKEN_TTL", &cfg.Profile.TokenTTL)
	num("PROFILE_FAILURE_THRESHOLD", &cfg.Profile.FailureThreshold)

	str("REDIS_URL", &cfg.Redis.URL)
	num("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	dur("REDIS_PENDING_TTL", &cfg.Redis.PendingTTL)

	str("DATABASE_URL", &cfg.Database.URL)
	num("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)

	str("AUDIT_SINK", &cfg.Audit.Sink)
	str("AUDIT_TOPIC", &cfg.Audit.Topic)
	num("AUDIT_BUFFER", &cfg.Audit.Buffer)
	if v, ok := lookup("ORGANCHAIN_AUDIT_BROKERS"); ok && v != "" {
		cfg.Audit.Brokers = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateClient checks the settings the donor controller cannot start
// without.
func (c Config) ValidateClient() error {
	if strings.TrimSpace(c.Ledger.ContractAddress) == "" {
		return dErrors.New(dErrors.CodeConfigMissing, "ledger contract address is not configured")
	}
	switch c.Ledger.Transport {
	case "memory":
	case "fabric":
		if c.Ledger.PeerEndpoint == "" {
			return dErrors.New(dErrors.CodeConfigMissing, "ledger peer endpoint is not configured")
		}
		if c.Wallet.Backend != "keystore" {
			return dErrors.New(dErrors.CodeValidation, "fabric transport requires the keystore wallet")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown ledger transport %q", c.Ledger.Transport))
	}
	switch c.Wallet.Backend {
	case "memory":
	case "keystore":
		if c.Wallet.KeystoreDir == "" {
			return dErrors.New(dErrors.CodeConfigMissing, "wallet keystore directory is not configured")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown wallet backend %q", c.Wallet.Backend))
	}
	if c.Server.JWTSigningKey == "" {
		return dErrors.New(dErrors.CodeConfigMissing, "jwt signing key is not configured")
	}
	if c.Ledger.ConfirmTimeout <= 0 {
		return dErrors.New(dErrors.CodeValidation, "ledger confirm timeout must be positive")
	}
	return c.validateAudit()
}

// ValidateServer checks profile-store server settings.
func (c Config) ValidateServer() error {
	if c.Server.JWTSigningKey == "" {
		return dErrors.New(dErrors.CodeConfigMissing, "jwt signing key is not configured")
	}
	switch c.Server.Store {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return dErrors.New(dErrors.CodeConfigMissing, "database url is not configured")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown profile store %q", c.Server.Store))
	}
	return nil
}

func (c Config) validateAudit() error {
	switch c.Audit.Sink {
	case "none", "memory":
		return nil
	case "kafka":
		if len(c.Audit.Brokers) == 0 {
			return dErrors.New(dErrors.CodeConfigMissing, "audit brokers are not configured")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown audit sink %q", c.Audit.Sink))
	}
}
