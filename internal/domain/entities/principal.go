package entities

// Role distinguishes personal accounts from business accounts.
type Role string

const (
	RolePersonal Role = "PERSONAL"
	RoleBusiness Role = "BUSINESS"
)

// Principal is the authenticated identity supplied by the auth collaborator.
// The core trusts it and does not re-verify. Business principals attach
// wallets to their company, personal principals to the user; exactly one of
// the two owner columns is set on a wallet row.
type Principal struct {
	UserID    string
	CompanyID string
	Role      Role
}

// IsBusiness reports whether wallets should be attached to the company.
func (p Principal) IsBusiness() bool {
	return p.Role == RoleBusiness && p.CompanyID != ""
}
