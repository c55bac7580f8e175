package fabric

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organchain/internal/ledger"
	"organchain/internal/models"
	"organchain/internal/wallet"
	walletmem "organchain/internal/wallet/memory"
	"organchain/pkg/domain"
)

func endorseError(t *testing.T, code codes.Code, msg string) error {
	t.Helper()
	st, err := status.New(code, "failed to endorse transaction").WithDetails(&gateway.ErrorDetail{
		Address: "peer0.org1.example.com:7051",
		MspId:   "Org1MSP",
		Message: msg,
	})
	require.NoError(t, err)
	return st.Err()
}

func TestRegisterArgs(t *testing.T) {
	args, err := registerArgs(models.Registration{
		FullName:       "Ada Donor",
		Age:            34,
		BloodType:      domain.BloodTypeOPos,
		Organs:         []domain.Organ{domain.OrganKidney, domain.OrganLiver},
		MedicalHistory: "None",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Donor", "34", "O+", `["kidney","liver"]`, "None"}, args)
}

func TestDecodeRecord(t *testing.T) {
	addr := domain.MustParseAddress("0xab00000000000000000000000000000000000012")

	raw, err := json.Marshal(recordJSON{
		FullName: "Ada Donor", Age: 34, BloodType: "O+",
		Organs: []string{"kidney", "liver"}, RegisteredAt: 1_700_000_000, IsActive: true,
	})
	require.NoError(t, err)

	rec, err := decodeRecord(addr, raw)
	require.NoError(t, err)
	assert.Equal(t, addr, rec.Identity)
	assert.Equal(t, []domain.Organ{domain.OrganKidney, domain.OrganLiver}, rec.Organs)
	assert.Equal(t, int64(1_700_000_000), rec.RegisteredAt)

	for _, empty := range []string{"", "null", "  "} {
		_, err := decodeRecord(addr, []byte(empty))
		assert.ErrorIs(t, err, ledger.ErrNotRegistered)
	}
}

func TestChaincodeMessage(t *testing.T) {
	reason, ok := chaincodeMessage(endorseError(t, codes.Aborted, "chaincode response 500, Donor already registered"))
	require.True(t, ok)
	assert.Equal(t, "Donor already registered", reason)

	_, ok = chaincodeMessage(errors.New("plain"))
	assert.False(t, ok)
}

func TestWriteErrorClassification(t *testing.T) {
	s := &session{}

	t.Run("chaincode rejection is a revert", func(t *testing.T) {
		err := s.writeError(endorseError(t, codes.Aborted, "chaincode response 500, Donor is not active"))
		var rev *ledger.RevertError
		require.ErrorAs(t, err, &rev)
		assert.Equal(t, "Donor is not active", rev.Reason)
	})

	t.Run("unavailable peer stays a transport error", func(t *testing.T) {
		err := s.writeError(endorseError(t, codes.Unavailable, "connection refused"))
		var rev *ledger.RevertError
		assert.False(t, errors.As(err, &rev))
	})

	t.Run("declined signature wins", func(t *testing.T) {
		s.declined.Store(true)
		defer s.declined.Store(false)
		err := s.writeError(errors.New("failed to sign"))
		assert.ErrorIs(t, err, wallet.ErrSignatureDeclined)
	})
}

func TestBindRequiresGatewaySigner(t *testing.T) {
	w := walletmem.New()
	addr, err := w.NewAccount()
	require.NoError(t, err)
	signer, err := w.Signer(addr)
	require.NoError(t, err)

	_, err = New(nil, Config{Channel: "mychannel", Chaincode: "donor-registry"}).Bind(&wallet.Identity{Address: addr, Signer: signer})
	assert.Error(t, err)
}

func TestIsNotRegistered(t *testing.T) {
	assert.True(t, isNotRegistered("Donor 0xab not registered"))
	assert.False(t, isNotRegistered("ledger busy"))
}
