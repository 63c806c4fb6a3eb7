package kling

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BaSui01/klingflow/types"
)

const (
	tokenTTL       = 1800 * time.Second
	tokenNotBefore = 5 * time.Second
	tokenKeyID     = "v1"
)

// SignedToken 是一次生成调用使用的短期 bearer token.
type SignedToken struct {
	Value     string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// BearerHeader 返回 Authorization 头的值.
func (t *SignedToken) BearerHeader() string {
	return "Bearer " + t.Value
}

// Valid 判断 at 是否落在 [nbf, exp) 内.
func (t *SignedToken) Valid(at time.Time) bool {
	return !at.Before(t.NotBefore) && at.Before(t.ExpiresAt)
}

// SignToken 用 HS256 签发 token：iss 为去空白的 access key，
// exp = now+1800s，nbf = now-5s，头部带 kid=v1。不做网络调用.
func SignToken(creds Credentials, now time.Time) (*SignedToken, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	c := creds.Trimmed()

	iat := now.Truncate(time.Second)
	exp := iat.Add(tokenTTL)
	nbf := iat.Add(-tokenNotBefore)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    c.AccessKey,
		ExpiresAt: jwt.NewNumericDate(exp),
		NotBefore: jwt.NewNumericDate(nbf),
	})
	token.Header["kid"] = tokenKeyID

	signed, err := token.SignedString([]byte(c.SecretKey))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidCredentials, "failed to sign token").
			WithCause(err).
			WithProvider(providerName)
	}

	return &SignedToken{
		Value:     signed,
		IssuedAt:  iat,
		NotBefore: nbf,
		ExpiresAt: exp,
	}, nil
}
