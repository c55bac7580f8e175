package keystore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organchain/internal/wallet"
	"organchain/pkg/domain"
)

// writeEnrolment creates a self-signed enrolment under dir/name/msp.
func writeEnrolment(t *testing.T, dir, name string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	msp := filepath.Join(dir, name, "msp")
	require.NoError(t, os.MkdirAll(filepath.Join(msp, "signcerts"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(msp, "keystore"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(msp, "signcerts", "cert.pem"),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(msp, "keystore", "priv_sk"),
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	return key
}

type declineSigning struct{ AutoApprove }

func (declineSigning) ApproveSign(domain.Address, []byte) bool { return false }

type rejectConnect struct{ AutoApprove }

func (rejectConnect) ApproveConnect(context.Context, []domain.Address) (bool, error) {
	return false, nil
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	key := writeEnrolment(t, dir, "User1@org1.example.com")
	writeEnrolment(t, dir, "User2@org1.example.com")

	ks, err := Open(dir, "Org1MSP", nil)
	require.NoError(t, err)

	want, err := wallet.AddressFromPublicKey(&key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "User1@org1.example.com", ks.Names()[want])

	accounts, err := ks.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, want, accounts[0])
}

func TestOpenEmptyDir(t *testing.T) {
	_, err := Open(t.TempDir(), "Org1MSP", nil)
	assert.ErrorIs(t, err, wallet.ErrUnavailable)
}

func TestSignerUsesEnrolmentKey(t *testing.T) {
	dir := t.TempDir()
	key := writeEnrolment(t, dir, "User1")

	ks, err := Open(dir, "Org1MSP", nil)
	require.NoError(t, err)
	addr, err := wallet.AddressFromPublicKey(&key.PublicKey)
	require.NoError(t, err)

	s, err := ks.Signer(addr)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("revokeDonation"))
	sig, err := s.Sign(digest[:])
	require.NoError(t, err)
	assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], sig))

	gw := s.(*Signer).GatewayIdentity()
	assert.Equal(t, "Org1MSP", gw.MspID())
}

func TestApproverDecisions(t *testing.T) {
	dir := t.TempDir()
	key := writeEnrolment(t, dir, "User1")
	addr, err := wallet.AddressFromPublicKey(&key.PublicKey)
	require.NoError(t, err)

	t.Run("declined signature", func(t *testing.T) {
		ks, err := Open(dir, "Org1MSP", declineSigning{})
		require.NoError(t, err)
		s, err := ks.Signer(addr)
		require.NoError(t, err)
		_, err = s.Sign(make([]byte, 32))
		assert.ErrorIs(t, err, wallet.ErrSignatureDeclined)
	})

	t.Run("rejected connection", func(t *testing.T) {
		ks, err := Open(dir, "Org1MSP", rejectConnect{})
		require.NoError(t, err)
		_, err = ks.RequestAccounts(context.Background())
		assert.ErrorIs(t, err, wallet.ErrUserRejected)
	})
}

func TestSelectPublishesWhenAuthorised(t *testing.T) {
	dir := t.TempDir()
	writeEnrolment(t, dir, "a")
	writeEnrolment(t, dir, "b")
	ks, err := Open(dir, "Org1MSP", nil)
	require.NoError(t, err)

	updates, cancel := ks.Watch()
	defer cancel()

	accounts, err := ks.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.NoError(t, ks.Select(accounts[1]))
	got := <-updates
	assert.Equal(t, accounts[1], got[0])

	ks.Lock()
	assert.Empty(t, <-updates)
}
