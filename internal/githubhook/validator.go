package githubhook

import (
	"net/http"

	"github.com/google/go-github/v57/github"
)

// Validator checks GitHub "sha256=" or "sha1=" prefixed signatures.
// When the configured header name is empty, X-Hub-Signature-256 is used.
type Validator struct{}

func (Validator) Verify(header http.Header, body []byte, secret, headerName string) bool {
	if secret == "" {
		return false
	}
	if headerName == "" {
		headerName = github.SHA256SignatureHeader
	}

	signature := header.Get(headerName)
	if signature == "" {
		return false
	}

	return github.ValidateSignature(signature, body, []byte(secret)) == nil
}
