package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// RequestSigner attaches registry credentials to an outgoing request.
type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request) error
}

type BasicAuthSigner struct {
	Username string
	Password string
}

func (s BasicAuthSigner) Sign(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("transport: http request is required")
	}
	username := strings.TrimSpace(s.Username)
	if username == "" {
		return fmt.Errorf("transport: username is required for basic auth signing")
	}
	req.SetBasicAuth(username, s.Password)
	return nil
}

type BearerTokenSigner struct {
	Token string
}

func (s BearerTokenSigner) Sign(_ context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("transport: http request is required")
	}
	token := strings.TrimSpace(s.Token)
	if token == "" {
		return fmt.Errorf("transport: access token is required for bearer signing")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// SigningClient signs every request before handing it to the wrapped doer.
type SigningClient struct {
	Next   HTTPDoer
	Signer RequestSigner
}

func NewSigningClient(next HTTPDoer, signer RequestSigner) *SigningClient {
	if next == nil {
		next = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &SigningClient{Next: next, Signer: signer}
}

func (c *SigningClient) Do(req *http.Request) (*http.Response, error) {
	if c == nil || c.Next == nil {
		return nil, fmt.Errorf("transport: signing client requires an http doer")
	}
	if c.Signer != nil {
		if err := c.Signer.Sign(req.Context(), req); err != nil {
			return nil, err
		}
	}
	return c.Next.Do(req)
}

var (
	_ RequestSigner = BasicAuthSigner{}
	_ RequestSigner = BearerTokenSigner{}
	_ HTTPDoer      = (*SigningClient)(nil)
)
