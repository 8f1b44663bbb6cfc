package mail

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a stable, machine-readable failure cause.
type Kind string

// Category groups kinds by the stage they are raised in.
type Category string

const (
	CategoryConfig       Category = "config"
	CategoryResolution   Category = "resolution"
	CategoryPrecondition Category = "precondition"
	CategoryTransport    Category = "transport"
)

// Configuration kinds, raised by Validate.
const (
	KindMissingRequiredKey          Kind = "MissingRequiredKey"
	KindUnknownKey                  Kind = "UnknownKey"
	KindInvalidServer               Kind = "InvalidServer"
	KindInvalidEncryptionMode       Kind = "InvalidEncryptionMode"
	KindUnencryptedRemoteConnection Kind = "UnencryptedRemoteConnection"
	KindInvalidPort                 Kind = "InvalidPort"
	KindMissingPort                 Kind = "MissingPort"
	KindInvalidCredential           Kind = "InvalidCredential"
	KindInvalidRecipientType        Kind = "InvalidRecipientType"
	KindEmptyRecipientMap           Kind = "EmptyRecipientMap"
	KindInvalidEmail                Kind = "InvalidEmail"
	KindInvalidWrapWidth            Kind = "InvalidWrapWidth"
)

// Resolution kinds.
const (
	KindInvalidOverrideRecipient Kind = "InvalidOverrideRecipient"
	KindNoRecipientAvailable     Kind = "NoRecipientAvailable"
	KindRoleNotConfigured        Kind = "RoleNotConfigured"
)

// Precondition kinds.
const (
	KindMissingSubject     Kind = "MissingSubject"
	KindMissingMailContent Kind = "MissingMailContent"
)

// Transport kinds.
const (
	KindAuthenticationFailed  Kind = "AuthenticationFailed"
	KindSenderRefused         Kind = "SenderRefused"
	KindRecipientRefused      Kind = "RecipientRefused"
	KindServerDisconnected    Kind = "ServerDisconnected"
	KindGenericTransportError Kind = "GenericTransportError"
)

var categories = map[Kind]Category{
	KindMissingRequiredKey:          CategoryConfig,
	KindUnknownKey:                  CategoryConfig,
	KindInvalidServer:               CategoryConfig,
	KindInvalidEncryptionMode:       CategoryConfig,
	KindUnencryptedRemoteConnection: CategoryConfig,
	KindInvalidPort:                 CategoryConfig,
	KindMissingPort:                 CategoryConfig,
	KindInvalidCredential:           CategoryConfig,
	KindInvalidRecipientType:        CategoryConfig,
	KindEmptyRecipientMap:           CategoryConfig,
	KindInvalidEmail:                CategoryConfig,
	KindInvalidWrapWidth:            CategoryConfig,

	KindInvalidOverrideRecipient: CategoryResolution,
	KindNoRecipientAvailable:     CategoryResolution,
	KindRoleNotConfigured:        CategoryResolution,

	KindMissingSubject:     CategoryPrecondition,
	KindMissingMailContent: CategoryPrecondition,

	KindAuthenticationFailed:  CategoryTransport,
	KindSenderRefused:         CategoryTransport,
	KindRecipientRefused:      CategoryTransport,
	KindServerDisconnected:    CategoryTransport,
	KindGenericTransportError: CategoryTransport,
}

// Category returns the stage the kind belongs to, or "" for unknown kinds.
func (k Kind) Category() Category {
	return categories[k]
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its Kind.
var (
	ErrMissingRequiredKey          = &Error{Kind: KindMissingRequiredKey, Message: "required key is missing"}
	ErrUnknownKey                  = &Error{Kind: KindUnknownKey, Message: "unknown key"}
	ErrInvalidServer               = &Error{Kind: KindInvalidServer, Message: "server must be a non-empty string"}
	ErrInvalidEncryptionMode       = &Error{Kind: KindInvalidEncryptionMode, Message: "encryption must be one of off, starttls, ssl"}
	ErrUnencryptedRemoteConnection = &Error{Kind: KindUnencryptedRemoteConnection, Message: "connection is not to localhost, but an encryption method is not set"}
	ErrInvalidPort                 = &Error{Kind: KindInvalidPort, Message: "port must be an integer between 1 and 65535"}
	ErrMissingPort                 = &Error{Kind: KindMissingPort, Message: "a port is required to connect to a remote SMTP server"}
	ErrInvalidCredential           = &Error{Kind: KindInvalidCredential, Message: "credential must be a string"}
	ErrInvalidRecipientType        = &Error{Kind: KindInvalidRecipientType, Message: "recipient must be an address or a map of role to address"}
	ErrEmptyRecipientMap           = &Error{Kind: KindEmptyRecipientMap, Message: "recipient map is empty"}
	ErrInvalidEmail                = &Error{Kind: KindInvalidEmail, Message: "not a valid email address"}
	ErrInvalidWrapWidth            = &Error{Kind: KindInvalidWrapWidth, Message: "wrap width must be a non-negative integer"}

	ErrInvalidOverrideRecipient = &Error{Kind: KindInvalidOverrideRecipient, Message: "invalid value for override recipient"}
	ErrNoRecipientAvailable     = &Error{Kind: KindNoRecipientAvailable, Message: "no recipient given and no default recipient configured"}
	ErrRoleNotConfigured        = &Error{Kind: KindRoleNotConfigured, Message: "role is not configured"}

	ErrMissingSubject     = &Error{Kind: KindMissingSubject, Message: "mails need a subject line, otherwise they most likely will be classified as spam"}
	ErrMissingMailContent = &Error{Kind: KindMissingMailContent, Message: "no mail content supplied"}

	ErrAuthenticationFailed  = &Error{Kind: KindAuthenticationFailed, Message: "SMTP authentication failed"}
	ErrSenderRefused         = &Error{Kind: KindSenderRefused, Message: "SMTP server refused the sender"}
	ErrRecipientRefused      = &Error{Kind: KindRecipientRefused, Message: "SMTP server refused the recipient"}
	ErrServerDisconnected    = &Error{Kind: KindServerDisconnected, Message: "SMTP server unexpectedly disconnected"}
	ErrGenericTransportError = &Error{Kind: KindGenericTransportError, Message: "problem sending mail"}
)

// Error is the error type returned by every operation of this module.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

// NewError creates an *Error. Field and cause are optional.
func NewError(kind Kind, field, message string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Message: message, Err: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("mail.%s: ", e.Kind)
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return KindOf(err).Category() == CategoryConfig
}

// IsResolutionError reports whether err is a recipient resolution error.
func IsResolutionError(err error) bool {
	return KindOf(err).Category() == CategoryResolution
}

// IsPreconditionError reports whether err is a message precondition error.
func IsPreconditionError(err error) bool {
	return KindOf(err).Category() == CategoryPrecondition
}

// IsTransportError reports whether err is a transport error.
func IsTransportError(err error) bool {
	return KindOf(err).Category() == CategoryTransport
}
