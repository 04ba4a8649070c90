package googleauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"
)

// ErrInvalidAssertion covers every verification failure: bad signature, wrong
// audience, expired assertion, or the provider not answering in time.
var ErrInvalidAssertion = errors.New("invalid google id token")

type Claims struct {
	Subject string
	Email   string
}

// Verifier checks externally issued identity assertions. It never touches the
// database; linking assertions to accounts happens in the auth service.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

type GoogleVerifier struct {
	ClientID string
	Timeout  time.Duration
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, Timeout: 10 * time.Second}
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	payload, err := idtoken.Validate(ctx, rawToken, v.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	email, ok := payload.Claims["email"].(string)
	if !ok || email == "" {
		return nil, fmt.Errorf("%w: missing email claim", ErrInvalidAssertion)
	}

	return &Claims{Subject: payload.Subject, Email: email}, nil
}
