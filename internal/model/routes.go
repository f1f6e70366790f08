package model

// Console destinations referenced outside the router.
const (
    LoginPath        = "/auth/login"
    LogoutPath       = "/auth/logout"
    AccessDeniedPath = "/access-denied"
    NotFoundPath     = "/notfound"
    ReturnURLParam   = "returnUrl"

    MePath                = "/me"
    AdminDashboardPath    = "/admin/dashboard"
    OperatorDashboardPath = "/operator/dashboard"
    DriverDashboardPath   = "/driver/dashboard"
    MissionsPath          = "/operator/missions"
    ProvidersPath         = "/operator/providers"
)

// roleHomes is the landing view of each role.
var roleHomes = map[Role]string{
    RoleAdmin:    AdminDashboardPath,
    RoleOperator: OperatorDashboardPath,
    RoleDriver:   DriverDashboardPath,
}

// viewRoles lists the protected console views and the roles that may enter
// them.  An empty list admits any logged-in user.
var viewRoles = map[string][]Role{
    "/":                   nil,
    MePath:                nil,
    AdminDashboardPath:    {RoleAdmin},
    OperatorDashboardPath: {RoleAdmin, RoleOperator},
    DriverDashboardPath:   {RoleDriver},
    MissionsPath:          {RoleAdmin, RoleOperator},
    ProvidersPath:         {RoleAdmin, RoleOperator},
}

// ViewRoles returns the roles allowed on the protected view at path.  ok is
// false for paths that are not protected views.
func ViewRoles(path string) (roles []Role, ok bool) {
    roles, ok = viewRoles[path]
    if !ok {
        return nil, false
    }
    return append([]Role(nil), roles...), true
}

// HomeFor returns the landing view for role.  A role outside the closed set
// lands on the access-denied view.
func HomeFor(role Role) string {
    if !role.Known() {
        return AccessDeniedPath
    }
    return roleHomes[role]
}
