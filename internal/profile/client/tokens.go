package client

import (
	"time"

	jwttoken "organchain/internal/jwt_token"
	"organchain/pkg/domain"
)

// ServiceTokens mints short-lived service tokens with a shared signing key.
type ServiceTokens struct {
	jwt      *jwttoken.JWTService
	clientID string
	ttl      time.Duration
}

func NewServiceTokens(jwt *jwttoken.JWTService, clientID string, ttl time.Duration) *ServiceTokens {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ServiceTokens{jwt: jwt, clientID: clientID, ttl: ttl}
}

func (t *ServiceTokens) Token(identity domain.Address) (string, error) {
	return t.jwt.GenerateServiceToken(identity, t.clientID, t.ttl)
}
