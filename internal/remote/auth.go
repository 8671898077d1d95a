package remote

import (
	"context"
	"strings"

	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"festreg/internal/errdef"
)

// SignInAnonymously mints a fresh anonymous identity with the project's
// identity provider. The api key is the only credential involved; the
// returned uid is held for status display, nothing else.
func SignInAnonymously(ctx context.Context, apiKey string) (string, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", errdef.NewConnectivity("identity service: %v", err)
	}
	req := &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{}
	resp, err := svc.Relyingparty.SignupNewUser(req).Context(ctx).Do()
	if err != nil {
		return "", classifySignInError(err)
	}
	return resp.LocalId, nil
}

// classifySignInError sorts identity-provider failures into the three
// classes the resolver treats differently. The provider reports them as
// upper-snake codes inside the error message.
func classifySignInError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API_KEY_INVALID"),
		strings.Contains(msg, "INVALID_API_KEY"),
		strings.Contains(msg, "API key not valid"):
		return errdef.NewBadCredential("api key rejected: %v", err)
	case strings.Contains(msg, "CONFIGURATION_NOT_FOUND"),
		strings.Contains(msg, "ADMIN_ONLY_OPERATION"),
		strings.Contains(msg, "OPERATION_NOT_ALLOWED"):
		return errdef.NewCapability("anonymous sign-in unavailable: %v", err)
	default:
		return errdef.NewConnectivity("sign-in failed: %v", err)
	}
}
