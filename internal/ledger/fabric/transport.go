// Package fabric runs the donor registry as Hyperledger Fabric chaincode
// behind the Fabric Gateway.
//
// Chaincode functions share the contract's names: RegisterDonor,
// RevokeDonation, GetDonorInfo and IsDonor. Organs travel as a JSON array
// and records come back as JSON.
package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organchain/internal/ledger"
	"organchain/internal/models"
	"organchain/internal/wallet"
	"organchain/pkg/domain"
)

const (
	fnRegisterDonor  = "RegisterDonor"
	fnRevokeDonation = "RevokeDonation"
	fnGetDonorInfo   = "GetDonorInfo"
	fnIsDonor        = "IsDonor"
)

// GatewaySigner is implemented by wallet signers that hold Fabric enrolment
// material.
type GatewaySigner interface {
	wallet.Signer
	GatewayIdentity() identity.Identity
}

type Config struct {
	Channel         string
	Chaincode       string
	EvaluateTimeout time.Duration
	EndorseTimeout  time.Duration
	SubmitTimeout   time.Duration
	// CommitStatusTimeout bounds a single status poll; the ledger client
	// applies the overall confirmation timeout.
	CommitStatusTimeout time.Duration
}

// Transport implements ledger.Transport over one gRPC connection.
type Transport struct {
	conn   *grpc.ClientConn
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	gateways []*client.Gateway
}

type Option func(*Transport)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

func New(conn *grpc.ClientConn, cfg Config, opts ...Option) *Transport {
	if cfg.EvaluateTimeout == 0 {
		cfg.EvaluateTimeout = 5 * time.Second
	}
	if cfg.EndorseTimeout == 0 {
		cfg.EndorseTimeout = 15 * time.Second
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = 5 * time.Second
	}
	if cfg.CommitStatusTimeout == 0 {
		cfg.CommitStatusTimeout = time.Minute
	}
	t := &Transport{conn: conn, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Bind connects a Gateway for id. The signer must carry Fabric enrolment
// material.
func (t *Transport) Bind(id *wallet.Identity) (ledger.Contract, error) {
	gs, ok := id.Signer.(GatewaySigner)
	if !ok {
		return nil, fmt.Errorf("identity %s cannot sign fabric transactions", id.Address.Short())
	}

	s := &session{id: id}
	sign := func(digest []byte) ([]byte, error) {
		sig, err := gs.Sign(digest)
		if errors.Is(err, wallet.ErrSignatureDeclined) {
			s.declined.Store(true)
		}
		return sig, err
	}

	gw, err := client.Connect(
		gs.GatewayIdentity(),
		client.WithSign(sign),
		client.WithClientConnection(t.conn),
		client.WithEvaluateTimeout(t.cfg.EvaluateTimeout),
		client.WithEndorseTimeout(t.cfg.EndorseTimeout),
		client.WithSubmitTimeout(t.cfg.SubmitTimeout),
		client.WithCommitStatusTimeout(t.cfg.CommitStatusTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	t.mu.Lock()
	t.gateways = append(t.gateways, gw)
	t.mu.Unlock()

	s.contract = gw.GetNetwork(t.cfg.Channel).GetContract(t.cfg.Chaincode)
	t.logger.Debug("fabric gateway bound",
		"identity", id.Address.Short(),
		"channel", t.cfg.Channel,
		"chaincode", t.cfg.Chaincode,
	)
	return s, nil
}

// Close closes every gateway this transport opened. The gRPC connection
// belongs to the caller.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, gw := range t.gateways {
		errs = append(errs, gw.Close())
	}
	t.gateways = nil
	return errors.Join(errs...)
}

type session struct {
	id       *wallet.Identity
	contract *client.Contract
	declined atomic.Bool
}

func (s *session) RegisterDonor(ctx context.Context, reg models.Registration) (ledger.Transaction, error) {
	args, err := registerArgs(reg)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, fnRegisterDonor, args...)
}

func (s *session) RevokeDonation(ctx context.Context) (ledger.Transaction, error) {
	return s.submit(ctx, fnRevokeDonation)
}

func (s *session) GetDonorInfo(ctx context.Context, addr domain.Address) (*models.LedgerRecord, error) {
	raw, err := s.contract.EvaluateWithContext(ctx, fnGetDonorInfo, client.WithArguments(addr.String()))
	if err != nil {
		if reason, ok := chaincodeMessage(err); ok && isNotRegistered(reason) {
			return nil, ledger.ErrNotRegistered
		}
		return nil, err
	}
	return decodeRecord(addr, raw)
}

func (s *session) IsDonor(ctx context.Context, addr domain.Address) (bool, error) {
	raw, err := s.contract.EvaluateWithContext(ctx, fnIsDonor, client.WithArguments(addr.String()))
	if err != nil {
		return false, err
	}
	ok, err := strconv.ParseBool(strings.TrimSpace(string(raw)))
	if err != nil {
		return false, fmt.Errorf("decode IsDonor result %q: %w", raw, err)
	}
	return ok, nil
}

// submit endorses and submits without waiting for commit.
func (s *session) submit(ctx context.Context, fn string, args ...string) (ledger.Transaction, error) {
	s.declined.Store(false)

	proposal, err := s.contract.NewProposal(fn, client.WithArguments(args...))
	if err != nil {
		return nil, s.writeError(err)
	}
	txn, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return nil, s.writeError(err)
	}
	commit, err := txn.SubmitWithContext(ctx)
	if err != nil {
		return nil, s.writeError(err)
	}
	return &transaction{commit: commit}, nil
}

func (s *session) writeError(err error) error {
	if s.declined.Load() {
		return fmt.Errorf("%w: %w", wallet.ErrSignatureDeclined, err)
	}
	if isTransportFailure(err) {
		return err
	}
	if reason, ok := chaincodeMessage(err); ok {
		return &ledger.RevertError{Reason: reason}
	}
	return err
}

type transaction struct {
	commit *client.Commit
}

func (t *transaction) ID() string {
	return t.commit.TransactionID()
}

func (t *transaction) Wait(ctx context.Context) (*ledger.Inclusion, error) {
	st, err := t.commit.StatusWithContext(ctx)
	if err != nil {
		return nil, err
	}
	if !st.Successful {
		return nil, &ledger.InvalidTxError{TxID: st.TransactionID, Code: st.Code.String()}
	}
	return &ledger.Inclusion{BlockNumber: st.BlockNumber}, nil
}

func registerArgs(reg models.Registration) ([]string, error) {
	organs, err := json.Marshal(domain.OrganStrings(reg.Organs))
	if err != nil {
		return nil, fmt.Errorf("encode organs: %w", err)
	}
	return []string{
		reg.FullName,
		strconv.Itoa(int(reg.Age)),
		reg.BloodType.String(),
		string(organs),
		reg.MedicalHistory,
	}, nil
}

type recordJSON struct {
	FullName       string   `json:"fullName"`
	Age            uint8    `json:"age"`
	BloodType      string   `json:"bloodType"`
	Organs         []string `json:"organs"`
	MedicalHistory string   `json:"medicalHistory"`
	RegisteredAt   int64    `json:"registeredAt"`
	IsActive       bool     `json:"isActive"`
}

// decodeRecord parses the chaincode's JSON. An empty or null result means
// the address has no record.
func decodeRecord(addr domain.Address, raw []byte) (*models.LedgerRecord, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, ledger.ErrNotRegistered
	}
	var r recordJSON
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode donor record: %w", err)
	}
	organs := make([]domain.Organ, 0, len(r.Organs))
	for _, o := range r.Organs {
		organs = append(organs, domain.Organ(o))
	}
	return &models.LedgerRecord{
		Identity:       addr,
		FullName:       r.FullName,
		Age:            r.Age,
		BloodType:      domain.BloodType(r.BloodType),
		Organs:         organs,
		MedicalHistory: r.MedicalHistory,
		RegisteredAt:   r.RegisteredAt,
		IsActive:       r.IsActive,
	}, nil
}

// chaincodeMessage extracts the chaincode's error message from gateway
// error details.
func chaincodeMessage(err error) (string, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, d := range st.Details() {
		if detail, ok := d.(*gateway.ErrorDetail); ok && detail.GetMessage() != "" {
			return cleanReason(detail.GetMessage()), true
		}
	}
	return "", false
}

func isTransportFailure(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return true
	}
	return false
}

// cleanReason strips the peer's "chaincode response 500, " prefix.
func cleanReason(msg string) string {
	if _, after, ok := strings.Cut(msg, "chaincode response 500, "); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(msg)
}

func isNotRegistered(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "not registered")
}
