package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// AuthClient adapts the external identity provider. The chat core only needs
// credential -> stable user ID; account management lives elsewhere.
type AuthClient struct {
	client *auth.Client
}

func NewAuthClient(client *auth.Client) *AuthClient {
	return &AuthClient{
		client: client,
	}
}

// VerifyToken validates an ID token and returns the user ID it was minted for.
func (f *AuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return result.UID, nil
}
