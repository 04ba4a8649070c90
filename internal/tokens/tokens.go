package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrExpired means the token was well-formed and correctly signed but its
	// expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrMalformed covers everything else: bad structure, bad signature,
	// unexpected signing method, wrong token type.
	ErrMalformed = errors.New("token malformed")
)

// Claims is the single claims shape for both token kinds. Typ tells access and
// refresh tokens apart so a refresh token presented on the access path (or the
// other way round) is rejected even while still unexpired.
type Claims struct {
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and verifies token pairs with a single process-wide secret.
type Service struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func (s *Service) sign(userID uint, typ string, exp time.Time) (string, error) {
	claims := Claims{
		Typ: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

func (s *Service) IssueAccess(userID uint) (string, time.Time, error) {
	exp := time.Now().Add(s.AccessTTL)
	token, err := s.sign(userID, TypeAccess, exp)
	return token, exp, err
}

func (s *Service) IssuePair(userID uint) (*Pair, error) {
	accessToken, accessExp, err := s.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refreshExp := time.Now().Add(s.RefreshTTL)
	refreshToken, err := s.sign(userID, TypeRefresh, refreshExp)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Parse verifies signature, expiry and token type, and returns the subject
// user id. Failures collapse to ErrExpired or ErrMalformed.
func (s *Service) Parse(raw, wantTyp string) (uint, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return s.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpired
		}
		return 0, ErrMalformed
	}
	if !tkn.Valid || claims.Typ != wantTyp {
		return 0, ErrMalformed
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrMalformed
	}
	return uint(id), nil
}
