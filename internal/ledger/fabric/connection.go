package fabric

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// NewGrpcConnection dials the gateway peer. The connection should be shared
// by every Gateway bound to this endpoint. An empty tlsCertPath dials
// without TLS, which only suits local test networks.
func NewGrpcConnection(endpoint, tlsCertPath, hostAlias string) (*grpc.ClientConn, error) {
	if tlsCertPath == "" {
		return grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	pem, err := os.ReadFile(tlsCertPath)
	if err != nil {
		return nil, fmt.Errorf("read tls certificate: %w", err)
	}
	cert, err := identity.CertificateFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse tls certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(pool, hostAlias)))
	if err != nil {
		return nil, fmt.Errorf("create grpc connection: %w", err)
	}
	return conn, nil
}
