package chat

import (
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// VerifyRequest checks the request signature against the app signing secret.
func VerifyRequest(header http.Header, body []byte, signingSecret string) error {
	verifier, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("failed to read signature headers: %w", err)
	}

	if _, err := verifier.Write(body); err != nil {
		return fmt.Errorf("failed to hash request body: %w", err)
	}

	if err := verifier.Ensure(); err != nil {
		return fmt.Errorf("invalid request signature: %w", err)
	}

	return nil
}
