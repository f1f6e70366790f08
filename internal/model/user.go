package model

// Role is the kind of actor a session belongs to.  The remote API only
// issues ADMIN, OPERATOR and DRIVER, but the type is a plain string so that
// an unexpected value coming off the wire survives decoding and can be
// routed to the access-denied view instead of failing.
type Role string

const (
    RoleAdmin    Role = "ADMIN"
    RoleOperator Role = "OPERATOR"
    RoleDriver   Role = "DRIVER"
)

// Roles lists the closed set of roles known to this client.
var Roles = []Role{RoleAdmin, RoleOperator, RoleDriver}

// Known reports whether r belongs to the closed role set.
func (r Role) Known() bool {
    switch r {
    case RoleAdmin, RoleOperator, RoleDriver:
        return true
    }
    return false
}

// UserProfile is the authenticated identity returned by the login endpoint
// (`userResponse` on the wire).  It is immutable for the lifetime of a
// session; a new login replaces it wholesale.
//
// Fields:
//  Reference – opaque stable identifier assigned by the API.
//  Username  – login name.
//  Email     – contact address.
//  FullName  – display name.
//  Role      – ADMIN, OPERATOR or DRIVER.
//  Active    – whether the account is enabled.
type UserProfile struct {
    Reference string `json:"reference"`
    Username  string `json:"username"`
    Email     string `json:"email"`
    FullName  string `json:"fullName"`
    Role      Role   `json:"role"`
    Active    bool   `json:"active"`
}

// TokenPair is the credential material of a session.  The access token
// carries its own `exp` claim, which is the only expiry this client trusts.
type TokenPair struct {
    AccessToken  string
    RefreshToken string
}
