package models

// Identity is a host user together with the role names granted to it.
type Identity struct {
	ID          uint64   `json:"id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
}

// HasAnyRole reports whether the identity holds one of the given role names.
// Names are expected in lower case.
func (i Identity) HasAnyRole(names map[string]struct{}) bool {
	for _, role := range i.Roles {
		if _, ok := names[role]; ok {
			return true
		}
	}
	return false
}
