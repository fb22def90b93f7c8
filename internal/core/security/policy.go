package security

import "github.com/99minutos/todo-system/internal/core/domain"

// Tier is a role requirement attached to an operation.
type Tier int

const (
	// TierElevated admits only the admin role.
	TierElevated Tier = iota + 1
	// TierElevatedOrStandard admits the admin or the user role.
	TierElevatedOrStandard
)

func (t Tier) String() string {
	switch t {
	case TierElevated:
		return "elevated"
	case TierElevatedOrStandard:
		return "elevated_or_standard"
	default:
		return "unknown"
	}
}

var tierRoles = map[Tier][]string{
	TierElevated:           {domain.RoleAdmin},
	TierElevatedOrStandard: {domain.RoleAdmin, domain.RoleUser},
}

// Authorize returns nil when any of roles satisfies tier and
// domain.ErrAuthorizationDenied otherwise. Unknown tiers deny.
func Authorize(tier Tier, roles []string) error {
	for _, allowed := range tierRoles[tier] {
		for _, r := range roles {
			if r == allowed {
				return nil
			}
		}
	}
	return domain.ErrAuthorizationDenied
}
