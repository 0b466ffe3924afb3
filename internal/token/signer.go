package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
)

var (
	// ErrMissingSigningKey 는 서명 키 미설정 오류다. 설정 오류로 5xx 처리된다.
	ErrMissingSigningKey = errors.New("guest signing key not configured")
)

// Signer 는 게스트용 단기 베어러 토큰을 RS256 으로 발급한다.
// 검증은 하지 않는다. 인입 토큰의 클레임 해석은 identity 패키지가 비검증 디코드로 수행한다.
type Signer struct {
	cfg config.TokenConfig
	key *rsa.PrivateKey
}

// NewSigner 는 서명기를 생성한다. 키가 설정되지 않아도 생성은 성공하며
// Issue 시점에 ErrMissingSigningKey 를 반환한다. 잘못된 PEM 은 기동 실패다.
func NewSigner(cfg config.TokenConfig) (*Signer, error) {
	signer := &Signer{cfg: cfg}
	if cfg.PrivateKeyPEM == "" {
		return signer, nil
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse guest signing key: %w", err)
	}
	signer.key = key
	return signer, nil
}

// Issue 는 호출자 클레임을 담은 서명 토큰과 만료 시각을 반환한다.
// 수명은 설정 TTL 을 따르되 최소 60초로 클램프된다.
func (s *Signer) Issue(claims map[string]any) (string, time.Time, error) {
	if s == nil || s.key == nil {
		return "", time.Time{}, ErrMissingSigningKey
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.cfg.TTL()) * time.Second)

	payload := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"iss": s.cfg.Issuer,
	}
	for key, value := range claims {
		payload[key] = value
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, payload).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign guest token: %w", err)
	}
	return signed, expiresAt, nil
}
