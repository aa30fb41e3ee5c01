package webhook

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by pipeline errors.
const (
	ErrorInvalidConfig     = "INVALID_CONFIG"
	ErrorSignatureRejected = "SIGNATURE_REJECTED"
	ErrorPersistence       = "PERSISTENCE_FAILURE"
	ErrorDeferral          = "PROCESSING_DEFERRAL_FAILURE"
)

// Reasons a configuration key can be invalid.
const (
	ReasonMissing         = "missing"
	ReasonNotAString      = "not_a_string"
	ReasonNotFound        = "not_found"
	ReasonWrongCapability = "wrong_capability"
	ReasonInvalidOptions  = "invalid_options"
)

// ErrInvalidConfig matches every *InvalidConfigError via errors.Is.
var ErrInvalidConfig = errors.New("invalid webhook config")

// InvalidConfigError reports the first configuration key that failed to resolve.
type InvalidConfigError struct {
	Config string
	Key    string
	Reason string
	Detail string
}

func (e *InvalidConfigError) Error() string {
	name := e.Config
	if name == "" {
		name = "<unnamed>"
	}
	msg := fmt.Sprintf("invalid webhook config %q: key %q %s", name, e.Key, describeReason(e.Reason))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ToServiceError converts the error into the go-errors envelope.
func (e *InvalidConfigError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryValidation).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInvalidConfig).
		WithMetadata(map[string]any{
			"config": e.Config,
			"key":    e.Key,
			"reason": e.Reason,
		})
}

func describeReason(reason string) string {
	switch reason {
	case ReasonMissing:
		return "is required"
	case ReasonNotAString:
		return "must be a string"
	case ReasonNotFound:
		return "names an implementation that is not registered"
	case ReasonWrongCapability:
		return "names an implementation of the wrong capability"
	case ReasonInvalidOptions:
		return "has invalid options"
	default:
		return "is invalid"
	}
}

// SignatureRejected is returned when the request signature does not verify.
func SignatureRejected(configName string) error {
	return goerrors.New("invalid signature", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorSignatureRejected).
		WithMetadata(map[string]any{"config": configName})
}

// PersistenceFailure wraps a storage error raised while recording a request.
func PersistenceFailure(configName string, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "failed to store webhook record").
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorPersistence).
		WithMetadata(map[string]any{"config": configName})
}

// DeferralFailure wraps a profile or enqueue error raised at stage. It is
// stored on the record, never returned to the sender.
func DeferralFailure(recordID, stage string, source error) *goerrors.Error {
	return goerrors.Wrap(source, goerrors.CategoryOperation, stage).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorDeferral).
		WithMetadata(map[string]any{"record": recordID, "stage": stage})
}

// ExceptionText renders err for a record's exception column. A go-errors
// envelope becomes "TEXT_CODE: message: source"; anything else is err.Error().
func ExceptionText(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return err.Error()
	}

	text := rich.Message
	if rich.TextCode != "" {
		text = rich.TextCode + ": " + text
	}
	if rich.Source != nil {
		text += ": " + rich.Source.Error()
	}
	return text
}

// HTTPStatus returns the status carried by a go-errors envelope, or 500.
func HTTPStatus(err error) (int, string) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code != 0 {
		return rich.Code, rich.TextCode
	}
	return http.StatusInternalServerError, ""
}
