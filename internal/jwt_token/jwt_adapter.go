package jwttoken

import (
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	authmw "organchain/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes a JWTService as the auth middleware's validator,
// translating service-token claims into the identity the handlers authorise
// against.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	identity, err := domain.ParseAddress(claims.Identity)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token identity")
	}
	return &authmw.JWTClaims{
		Identity: identity,
		ClientID: claims.ClientID,
		JTI:      claims.ID,
	}, nil
}
