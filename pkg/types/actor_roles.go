package types

import "strings"

const (
	// ActorTypeMember is the default actor type for authenticated members.
	ActorTypeMember = "member"
	// ActorTypeSystem marks scheduled jobs and operator tooling.
	ActorTypeSystem = "system"
)

// SystemActor returns the actor used by background sweeps.
func SystemActor() ActorRef {
	return ActorRef{Type: ActorTypeSystem}
}

// RoleName normalizes the actor type for comparisons.
func (a ActorRef) RoleName() string {
	return normalizeRole(a.Type)
}

// IsRole reports whether the actor matches the provided type.
func (a ActorRef) IsRole(role string) bool {
	return a.RoleName() == normalizeRole(role)
}

// IsSystem reports whether the actor is a system job rather than a member.
func (a ActorRef) IsSystem() bool {
	return a.IsRole(ActorTypeSystem)
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
