package entity

// Identity is the opaque per-device player token.
type Identity string

func (that Identity) String() string {
	return string(that)
}

type Role string

const (
	RoleNone  Role = ""
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Symbol is derived from the role: the host always plays X, the guest always plays O.
func (that Role) Symbol() string {
	switch that {
	case RoleHost:
		return PlayerX
	case RoleGuest:
		return PlayerO
	default:
		return ""
	}
}

func (that Role) Valid() bool {
	return that == RoleHost || that == RoleGuest
}
