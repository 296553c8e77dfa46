package service

import (
	"errors"
	"net/http"

	"github.com/chnk8802/task-manager/pkg/utils/response"
)

// Kind classifies a service failure. The set is closed.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidCredentials
	KindUnauthenticated
	KindNotFound
	KindUnsupportedFormat
	KindOversize
	KindDecodeFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindOversize:
		return "oversize_file"
	case KindDecodeFailure:
		return "decode_failure"
	default:
		return "internal"
	}
}

// Reasons an authentication attempt was rejected. Only written to logs.
const (
	ReasonNoToken        = "no_token"
	ReasonMalformedToken = "malformed_token"
	ReasonExpiredToken   = "expired_token"
	ReasonBadSignature   = "bad_signature"
	ReasonUnknownAccount = "unknown_account"
	ReasonRevokedToken   = "revoked_token"
)

var (
	ErrDuplicateIdentity  = errors.New("email is already registered")
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrWeakSecret         = errors.New("password is too weak")
	ErrInvalidUpdateField = errors.New("invalid updates")
	ErrInvalidCredentials = errors.New("unable to login")
	ErrUnauthenticated    = errors.New("please authenticate")
	ErrMalformedToken     = errors.New("malformed token")
	ErrExpiredToken       = errors.New("token expired")
	ErrBadSignature       = errors.New("bad token signature")
	ErrUnsupportedFormat  = errors.New("please upload a jpg, jpeg or png image")
	ErrOversizeFile       = errors.New("file too large")
	ErrDecodeFailure      = errors.New("image could not be decoded")
	ErrNotFound           = errors.New("not found")
	ErrInvalidQuery       = errors.New("invalid query")
)

// Error is the result type of every failing service call.
// Message is safe to show to clients; Reason and Err are for logs only.
type Error struct {
	Kind    Kind
	Message string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

var kindSentinels = map[Kind]error{
	KindInvalidCredentials: ErrInvalidCredentials,
	KindUnauthenticated:    ErrUnauthenticated,
	KindNotFound:           ErrNotFound,
	KindUnsupportedFormat:  ErrUnsupportedFormat,
	KindOversize:           ErrOversizeFile,
	KindDecodeFailure:      ErrDecodeFailure,
}

// Is matches the sentinel of the error's kind, so errors.Is(err, ErrUnauthenticated)
// holds whatever the underlying reason.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// HTTPStatus implements response.APIError
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidCredentials, KindUnsupportedFormat, KindOversize, KindDecodeFailure:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType implements response.APIError
func (e *Error) ErrorType() string {
	switch e.Kind {
	case KindValidation:
		return response.ValidationException
	case KindInvalidCredentials:
		return response.AuthenticationException
	case KindUnauthenticated:
		return response.AuthorizationException
	case KindNotFound:
		return response.NotFoundException
	case KindUnsupportedFormat, KindOversize, KindDecodeFailure:
		return response.AvatarException
	default:
		return response.ServerException
	}
}

// PublicMessage implements response.APIError
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal || e.Message == "" {
		return "Internal server error"
	}
	return e.Message
}

// KindOf returns the kind of err, KindInternal if err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationError(cause error, message string) error {
	return &Error{Kind: KindValidation, Message: message, Err: cause}
}

func internalError(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}

func unauthenticated(reason string, cause error) error {
	return &Error{Kind: KindUnauthenticated, Message: "Please authenticate.", Reason: reason, Err: cause}
}

func notFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message, Err: ErrNotFound}
}
