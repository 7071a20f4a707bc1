package gatt

// A Permission is the security bitmask of an attribute. Read and
// write bits are evaluated independently.
type Permission uint8

// Permission bits, as set by a definition's SecuritySettings.
const (
	PermReadOnly                Permission = 0x01 // readable without security
	PermReadWithAuthentication  Permission = 0x02
	PermReadWithAuthorization   Permission = 0x04
	PermWriteWithAuthentication Permission = 0x20
	PermWriteWithAuthorization  Permission = 0x40
)

var permNames = map[string]Permission{
	"ReadOnly":                PermReadOnly,
	"ReadWithAuthentication":  PermReadWithAuthentication,
	"ReadWithAuthorization":   PermReadWithAuthorization,
	"WriteWithAuthentication": PermWriteWithAuthentication,
	"WriteWithAuthorization":  PermWriteWithAuthorization,
}

// An AuthLevel is the security level of the calling session.
type AuthLevel int

const (
	AuthNone AuthLevel = iota
	AuthAuthenticated
	AuthAuthorized
)

// ParseAuthLevel maps "Authenticated" and "Authorized" to their levels.
// Any other string, including "", is AuthNone.
func ParseAuthLevel(s string) AuthLevel {
	switch s {
	case "Authenticated":
		return AuthAuthenticated
	case "Authorized":
		return AuthAuthorized
	}
	return AuthNone
}

func (a AuthLevel) String() string {
	switch a {
	case AuthAuthenticated:
		return "Authenticated"
	case AuthAuthorized:
		return "Authorized"
	}
	return "None"
}

// A Verdict is the outcome of a permission evaluation.
type Verdict int

const (
	Allowed Verdict = iota
	AuthenticationRequired
	AuthorizationRequired
)

func (v Verdict) String() string {
	switch v {
	case AuthenticationRequired:
		return "AuthenticationRequired"
	case AuthorizationRequired:
		return "AuthorizationRequired"
	}
	return "Allowed"
}

// Err returns the ATT status for v.
func (v Verdict) Err() AttError {
	switch v {
	case AuthenticationRequired:
		return ErrAuthentication
	case AuthorizationRequired:
		return ErrAuthorization
	}
	return ErrSuccess
}

// EvaluateRead decides whether a caller at level a may read an attribute
// with permission p. Authorization takes precedence over authentication.
func EvaluateRead(p Permission, a AuthLevel) Verdict {
	return evaluate(p, PermReadWithAuthorization, PermReadWithAuthentication, a)
}

// EvaluateWrite is the write-side mirror of EvaluateRead.
func EvaluateWrite(p Permission, a AuthLevel) Verdict {
	return evaluate(p, PermWriteWithAuthorization, PermWriteWithAuthentication, a)
}

func evaluate(p, authz, authn Permission, a AuthLevel) Verdict {
	switch {
	case p&authz != 0:
		if a == AuthAuthenticated || a == AuthAuthorized {
			return Allowed
		}
		return AuthorizationRequired
	case p&authn != 0:
		if a == AuthAuthenticated {
			return Allowed
		}
		return AuthenticationRequired
	}
	return Allowed
}
