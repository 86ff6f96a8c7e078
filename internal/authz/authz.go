package authz

import (
	"context"
	"embed"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/pkg/user"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleProjectOwner Role = "project_owner"
	RoleTeamMember   Role = "team_member"
)

// Capabilities as (object, action) pairs understood by the policy.
const (
	ObjAllocation = "allocation"
	ObjBench      = "bench"
	ObjRemark     = "remark"
	ObjProject    = "project"
	ObjCalendar   = "calendar"
	ObjDashboard  = "dashboard"

	ActRead           = "read"
	ActEdit           = "edit"
	ActCopyWeek       = "copy_week"
	ActBypassEditGate = "bypass_edit_gate"
	ActWrite          = "write"
	ActReadAll        = "read_all"
	ActReadOwned      = "read_owned"
)

type roleKey struct{}

func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFrom returns the caller role stored in ctx. A missing role is a team member.
func RoleFrom(ctx context.Context) Role {
	role, ok := ctx.Value(roleKey{}).(Role)
	if !ok {
		return RoleTeamMember
	}
	return role
}

// RoleOf derives the console role of u. Admins win over project ownership.
func RoleOf(u user.User, isProjectOwner bool) Role {
	switch {
	case u.Admin:
		return RoleAdmin
	case isProjectOwner:
		return RoleProjectOwner
	default:
		return RoleTeamMember
	}
}

type Enforcer struct {
	enforcer *casbin.Enforcer
}

// NewEnforcer loads the embedded RBAC model and policy.
func NewEnforcer() (*Enforcer, error) {
	dir, err := os.MkdirTemp("", "tppms-casbin-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := writeEmbedToDir(dir, "model.conf", "policy.csv"); err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(
		filepath.Join(dir, "model.conf"),
		filepath.Join(dir, "policy.csv"),
	)
	if err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: enforcer}, nil
}

func writeEmbedToDir(dir string, names ...string) error {
	for _, name := range names {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enforcer) Can(role Role, object, action string) bool {
	allowed, err := e.enforcer.Enforce(string(role), object, action)
	if err != nil {
		log.Errorf("authz: enforce role=%s obj=%s act=%s failed: %v", role, object, action, err)
		return false
	}
	log.Tracef("authz: role=%s obj=%s act=%s allowed=%v", role, object, action, allowed)
	return allowed
}

// Allowed checks the role carried by ctx.
func (e *Enforcer) Allowed(ctx context.Context, object, action string) bool {
	return e.Can(RoleFrom(ctx), object, action)
}
