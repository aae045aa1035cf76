package dist

import "fmt"

// BuiltinPolicy controls which host builtins an incoming image may call.
// A nil Allowed means "allow all".
type BuiltinPolicy struct {
	Allowed map[string]bool // nil = allow all
	Denied  map[string]bool
}

// NewPermissivePolicy creates a policy that allows every builtin.
func NewPermissivePolicy() *BuiltinPolicy {
	return &BuiltinPolicy{}
}

// NewRestrictedPolicy creates a policy that only allows the named builtins.
func NewRestrictedPolicy(allowed []string) *BuiltinPolicy {
	m := make(map[string]bool, len(allowed))
	for _, b := range allowed {
		m[b] = true
	}
	return &BuiltinPolicy{Allowed: m}
}

// Check verifies that every builtin the image requires is allowed.
func (p *BuiltinPolicy) Check(img *Image) error {
	for _, b := range img.Builtins {
		if p.Denied[b] {
			return fmt.Errorf("dist: image %s: builtin %q is explicitly denied", img.Name, b)
		}
		if p.Allowed != nil && !p.Allowed[b] {
			return fmt.Errorf("dist: image %s: builtin %q is not allowed", img.Name, b)
		}
	}
	return nil
}

// Deny adds a builtin to the deny list.
func (p *BuiltinPolicy) Deny(name string) {
	if p.Denied == nil {
		p.Denied = make(map[string]bool)
	}
	p.Denied[name] = true
}
