package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const callbackAudience = "judge-callback"

var ErrNoCallbackKey = errors.New("callback signing key is not configured")

// SignCallback issues the token the judge must present when it posts the
// result of one submission. The token names the user and the submission
// and does not expire, a result may be redelivered long after submitting.
func SignCallback(key []byte, userID, submissionID string) (string, error) {
	if len(key) == 0 {
		return "", ErrNoCallbackKey
	}
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		ID:       submissionID,
		Audience: jwt.ClaimStrings{callbackAudience},
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// VerifyCallback checks that token was issued by SignCallback for exactly
// this user and submission.
func VerifyCallback(key []byte, token, userID, submissionID string) error {
	if len(key) == 0 {
		return ErrNoCallbackKey
	}
	if token == "" {
		return errors.New("missing callback token")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(callbackAudience),
	)
	if err != nil {
		return fmt.Errorf("invalid callback token: %w", err)
	}
	if claims.Subject != userID || claims.ID != submissionID {
		return errors.New("callback token was issued for another submission")
	}
	return nil
}
