package domain

// Module is an application area that can be permissioned
type Module string

const (
	ModuleDashboard      Module = "dashboard"
	ModuleAnalytics      Module = "analytics"
	ModuleQuotes         Module = "quotes"
	ModuleInvoices       Module = "invoices"
	ModuleClients        Module = "clients"
	ModuleFollowUps      Module = "follow_ups"
	ModuleExpenses       Module = "expenses"
	ModuleCompanyProfile Module = "company_profile"
	ModuleSubscription   Module = "subscription"
	ModuleSettings       Module = "settings"
)

// AllModules lists every permissioned module
var AllModules = []Module{
	ModuleDashboard,
	ModuleAnalytics,
	ModuleQuotes,
	ModuleInvoices,
	ModuleClients,
	ModuleFollowUps,
	ModuleExpenses,
	ModuleCompanyProfile,
	ModuleSubscription,
	ModuleSettings,
}

// PermissionLevel is the access granted on a module
type PermissionLevel string

const (
	PermissionNone       PermissionLevel = "none"
	PermissionViewOnly   PermissionLevel = "view_only"
	PermissionFullAccess PermissionLevel = "full_access"
)

// Permissions maps every module to an access level
type Permissions map[Module]PermissionLevel

// FullAccessPermissions grants full access on every module (account owner)
func FullAccessPermissions() Permissions {
	p := make(Permissions, len(AllModules))
	for _, m := range AllModules {
		p[m] = PermissionFullAccess
	}
	return p
}

// Level returns the level for a module, none when unset
func (p Permissions) Level(m Module) PermissionLevel {
	if level, ok := p[m]; ok {
		return level
	}
	return PermissionNone
}

// CanView reports whether the module is readable
func (p Permissions) CanView(m Module) bool {
	level := p.Level(m)
	return level == PermissionViewOnly || level == PermissionFullAccess
}

// CanEdit reports whether the module is writable
func (p Permissions) CanEdit(m Module) bool {
	return p.Level(m) == PermissionFullAccess
}
