package authz

import "fmt"

type builtinRole struct {
	name     string
	inherits string
	grants   []Grant
}

// 预置角色：auditor 只读，其余角色在只读基础上各自开放一类写操作
var builtinRoles = []builtinRole{
	{name: "auditor", grants: []Grant{{Object: "/admin/*", Action: "GET"}}},
	{name: "fulfillment", inherits: "auditor", grants: []Grant{
		{Object: "/admin/orders/:id/ship", Action: "POST"},
	}},
	{name: "finance", inherits: "auditor", grants: []Grant{
		{Object: "/admin/orders/:id/refund", Action: "POST"},
	}},
	{name: "merchandiser", inherits: "auditor", grants: []Grant{
		{Object: "/admin/products/:id/seckill_cache", Action: "POST"},
		{Object: "/admin/products/:id/search_sync", Action: "POST"},
	}},
}

func builtinRoleNames() map[string]struct{} {
	names := make(map[string]struct{}, len(builtinRoles))
	for _, role := range builtinRoles {
		names[role.name] = struct{}{}
	}
	return names
}

// BootstrapBuiltinRoles 写入预置角色的授权与继承关系，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, role := range builtinRoles {
		subject := roleTag + role.name
		if role.inherits != "" {
			if _, err := s.enforcer.AddGroupingPolicy(subject, roleTag+role.inherits); err != nil {
				return fmt.Errorf("link role %s: %w", role.name, err)
			}
		}
		for _, grant := range role.grants {
			if _, err := s.enforcer.AddPolicy(subject, NormalizeObject(grant.Object), normalizeAction(grant.Action)); err != nil {
				return fmt.Errorf("grant role %s: %w", role.name, err)
			}
		}
	}
	return nil
}
