// Package authsdk provides a typed Go client for the praxis auth service,
// plus the OAuth2-style error values shared between the server handlers and
// SDK consumers.
//
// The client covers the public surface: password/MFA login, the
// client_credentials token endpoint, the PKCE authorization-code flow, and
// the password-reset lifecycle.
//
// Example:
//
//	client := authsdk.NewClient("https://auth.internal")
//	tok, err := client.Login(ctx, "alice@example.com", "secret")
//	var mfa *authsdk.MFARequiredError
//	if errors.As(err, &mfa) {
//		tok, err = client.VerifyMFA(ctx, "alice@example.com", readCode())
//	}
package authsdk
