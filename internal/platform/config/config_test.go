package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "organchain/pkg/domain-errors"
)

func envMap(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	applyEnv(&cfg, envMap(map[string]string{
		"ORGANCHAIN_CONTRACT_ADDRESS":       "donor-registry",
		"ORGANCHAIN_LEDGER_CONFIRM_TIMEOUT": "45s",
		"ORGANCHAIN_PROFILE_URL":            "http://profiles:8080/api",
		"ORGANCHAIN_AUDIT_BROKERS":          "k1:9092, k2:9092,",
		"ORGANCHAIN_AUDIT_BUFFER":           "not-a-number",
	}))

	assert.Equal(t, "donor-registry", cfg.Ledger.ContractAddress)
	assert.Equal(t, 45*time.Second, cfg.Ledger.ConfirmTimeout)
	assert.Equal(t, "http://profiles:8080/api", cfg.Profile.BaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.Brokers)
	assert.Equal(t, 256, cfg.Audit.Buffer, "unparsable values keep the default")
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "organchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ledger:
  transport: fabric
  contract_address: donor-registry
  peer_endpoint: localhost:7051
  confirm_timeout: 90s
wallet:
  backend: keystore
  keystore_dir: /etc/organchain/keys
server:
  jwt_signing_key: secret
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fabric", cfg.Ledger.Transport)
	assert.Equal(t, 90*time.Second, cfg.Ledger.ConfirmTimeout)
	assert.Equal(t, "mychannel", cfg.Ledger.Channel, "unset keys keep defaults")
	require.NoError(t, cfg.ValidateClient())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateClient(t *testing.T) {
	t.Run("missing contract address", func(t *testing.T) {
		err := Defaults().ValidateClient()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigMissing))
	})

	t.Run("memory defaults with contract address", func(t *testing.T) {
		cfg := Defaults()
		cfg.Ledger.ContractAddress = "donor-registry"
		cfg.Server.JWTSigningKey = "secret"
		assert.NoError(t, cfg.ValidateClient())
	})

	t.Run("missing signing key", func(t *testing.T) {
		cfg := Defaults()
		cfg.Ledger.ContractAddress = "donor-registry"
		err := cfg.ValidateClient()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigMissing))
	})

	t.Run("fabric requires keystore wallet", func(t *testing.T) {
		cfg := Defaults()
		cfg.Ledger.ContractAddress = "donor-registry"
		cfg.Ledger.Transport = "fabric"
		cfg.Ledger.PeerEndpoint = "localhost:7051"
		err := cfg.ValidateClient()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("kafka audit requires brokers", func(t *testing.T) {
		cfg := Defaults()
		cfg.Ledger.ContractAddress = "donor-registry"
		cfg.Server.JWTSigningKey = "secret"
		cfg.Audit.Sink = "kafka"
		err := cfg.ValidateClient()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfigMissing))
	})
}

func TestValidateServer(t *testing.T) {
	cfg := Defaults()
	assert.True(t, dErrors.HasCode(cfg.ValidateServer(), dErrors.CodeConfigMissing))

	cfg.Server.JWTSigningKey = "secret"
	require.NoError(t, cfg.ValidateServer())

	cfg.Server.Store = "postgres"
	assert.True(t, dErrors.HasCode(cfg.ValidateServer(), dErrors.CodeConfigMissing))

	cfg.Database.URL = "postgres://localhost/organchain"
	assert.NoError(t, cfg.ValidateServer())
}
