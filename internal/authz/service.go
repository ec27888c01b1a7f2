package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// 运营端只有路由级授权：主体是操作员或角色，资源是去掉 /api/v1 前缀的 gin 路由模板
const operatorModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

const (
	ruleTable  = "operator_rules"
	apiPrefix  = "/api/v1"
	roleTag    = "role:"
	operatorFm = "operator:%d"
)

var errUnavailable = errors.New("authz service unavailable")

// Grant 一条路由授权
type Grant struct {
	Object string `json:"object"`
	Action string `json:"action"`
}

// Service 运营端授权服务，策略持久化在 operator_rules 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 基于数据库加载授权策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", ruleTable)
	if err != nil {
		return nil, fmt.Errorf("authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(operatorModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz load policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return errUnavailable
	}
	return nil
}

// EnforceOperator 判断操作员能否以 method 访问 route
func (s *Service) EnforceOperator(operatorID uint, route, method string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if operatorID == 0 {
		return false, nil
	}
	return s.enforcer.Enforce(operatorSubject(operatorID), NormalizeObject(route), normalizeAction(method))
}

// SetOperatorRoles 覆盖操作员的角色列表，未知角色直接拒绝
func (s *Service) SetOperatorRoles(operatorID uint, roles []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if operatorID == 0 {
		return errors.New("operator id is required")
	}
	known := builtinRoleNames()
	subject := operatorSubject(operatorID)
	links := make([][]string, 0, len(roles))
	for _, raw := range roles {
		name := strings.TrimPrefix(strings.TrimSpace(raw), roleTag)
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown role %q", raw)
		}
		links = append(links, []string{subject, roleTag + name})
	}
	if _, err := s.enforcer.RemoveFilteredGroupingPolicy(0, subject); err != nil {
		return fmt.Errorf("clear operator roles: %w", err)
	}
	if len(links) == 0 {
		return nil
	}
	if _, err := s.enforcer.AddGroupingPolicies(links); err != nil {
		return fmt.Errorf("assign operator roles: %w", err)
	}
	return nil
}

// OperatorRoles 返回操作员直接持有的角色名（不含 role: 前缀）
func (s *Service) OperatorRoles(operatorID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(operatorSubject(operatorID))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, strings.TrimPrefix(role, roleTag))
	}
	sort.Strings(names)
	return names, nil
}

// NormalizeObject 把请求路径或路由模板归一成策略资源
func NormalizeObject(object string) string {
	object = strings.TrimSpace(object)
	if !strings.HasPrefix(object, "/") {
		object = "/" + object
	}
	object = strings.TrimPrefix(object, apiPrefix)
	if object == "" {
		return "/"
	}
	return object
}

func normalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}

func operatorSubject(operatorID uint) string {
	return fmt.Sprintf(operatorFm, operatorID)
}
