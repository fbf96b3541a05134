package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "rentalgrid-cluster"

// Claims 节点间令牌声明
type Claims struct {
	ClusterID int `json:"clusterId"`
	jwt.RegisteredClaims
}

// GenerateNodeToken 为节点签发 HS256 令牌，subject 为节点名。
func GenerateNodeToken(secret, nodeName string, clusterID int, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if nodeName == "" {
		return "", time.Time{}, fmt.Errorf("node name is empty")
	}
	if secret == "" {
		return "", time.Time{}, fmt.Errorf("auth secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	expiresAt = now.Add(ttl)

	c := Claims{
		ClusterID: clusterID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   nodeName,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyNodeToken 校验令牌并返回声明。
func VerifyNodeToken(secret, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[len("bearer "):])
	}
	if raw == "" {
		return nil, fmt.Errorf("empty token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(secret), nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Issuer != issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	return claims, nil
}
