package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// headerAlg reads the alg header without verifying anything. A token that does
// not even parse as a JWT belongs to no scheme.
func headerAlg(raw string) (string, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrongScheme, err)
	}
	alg, _ := tok.Header["alg"].(string)
	return alg, nil
}
