package authclient

import (
	"context"
	"os"
	"strings"

	"github.com/renoplan/renoplan/internal/oidc"
)

// IdentityClaims verifies the ID token returned by the code exchange and
// returns its claims. When the provider's discovery endpoint is unreachable
// and ALLOW_INSECURE_TOKEN=true, claims are parsed without signature
// verification (integration tests only).
func (c *Client) IdentityClaims(ctx context.Context, rawIDToken string) (map[string]interface{}, error) {
	ver, err := oidc.NewVerifier(ctx, strings.TrimRight(c.cfg.IssuerURL, "/"), c.cfg.ClientID)
	if err != nil {
		if strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN"))) == "true" {
			iv := oidc.NewInsecureVerifier()
			tkn, err := iv.Verify(ctx, rawIDToken)
			if err != nil {
				return nil, &UpstreamAuthError{Op: "id token parse", Err: err}
			}
			var claims map[string]interface{}
			if err := tkn.Claims(&claims); err != nil {
				return nil, err
			}
			return claims, nil
		}
		return nil, &UpstreamAuthError{Op: "oidc discovery", Err: err}
	}
	idt, err := ver.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, &UpstreamAuthError{Op: "id token verification", Err: err}
	}
	var claims map[string]interface{}
	if err := idt.Claims(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}
