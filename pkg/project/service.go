package project

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/pkg/user"
)

var ErrAccessDenied = errors.New("access denied to this project")

type Authorizer interface {
	Allowed(ctx context.Context, object, action string) bool
}

type Service interface {
	ListAll(ctx context.Context) ([]Project, error)
	MyProjects(ctx context.Context) ([]Project, error)
	MyOwnedProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, projectId int) (Project, error)
	// Members returns the active members of a project the caller can access.
	Members(ctx context.Context, projectId int) (Project, []Member, error)
	// CheckAccess returns ErrAccessDenied unless the caller can read every project or is a member of projectId.
	CheckAccess(ctx context.Context, projectId int) error
	IsProjectOwner(ctx context.Context, userId int) (bool, error)
}

type ServiceImpl struct {
	repo       Repository
	authorizer Authorizer
}

func NewService(repo Repository, authorizer Authorizer) *ServiceImpl {
	return &ServiceImpl{repo: repo, authorizer: authorizer}
}

func (s *ServiceImpl) ListAll(ctx context.Context) ([]Project, error) {
	if !s.authorizer.Allowed(ctx, authz.ObjProject, authz.ActReadAll) {
		return nil, ErrAccessDenied
	}
	return s.repo.ListActiveProjects(ctx)
}

func (s *ServiceImpl) MyProjects(ctx context.Context) ([]Project, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListUserProjects(ctx, userId)
}

func (s *ServiceImpl) MyOwnedProjects(ctx context.Context) ([]Project, error) {
	if !s.authorizer.Allowed(ctx, authz.ObjProject, authz.ActReadOwned) {
		return nil, ErrAccessDenied
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	projects, err := s.repo.ListOwnedProjects(ctx, userId)
	if err != nil {
		return nil, err
	}
	log.Debugf("found %d owned projects for user %d", len(projects), userId)
	return projects, nil
}

func (s *ServiceImpl) GetProject(ctx context.Context, projectId int) (Project, error) {
	if err := s.CheckAccess(ctx, projectId); err != nil {
		return Project{}, err
	}
	return s.repo.GetProject(ctx, projectId)
}

func (s *ServiceImpl) Members(ctx context.Context, projectId int) (Project, []Member, error) {
	p, err := s.GetProject(ctx, projectId)
	if err != nil {
		return Project{}, nil, err
	}
	members, err := s.repo.GetProjectMembers(ctx, projectId)
	if err != nil {
		return Project{}, nil, err
	}
	log.Debugf("project %d has %d active members", projectId, len(members))
	return p, members, nil
}

func (s *ServiceImpl) CheckAccess(ctx context.Context, projectId int) error {
	if s.authorizer.Allowed(ctx, authz.ObjProject, authz.ActReadAll) {
		return nil
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	member, err := s.repo.IsMember(ctx, userId, projectId)
	if err != nil {
		return err
	}
	if !member {
		log.Debugf("user %d is not a member of project %d", userId, projectId)
		return ErrAccessDenied
	}
	return nil
}

func (s *ServiceImpl) IsProjectOwner(ctx context.Context, userId int) (bool, error) {
	projects, err := s.repo.ListOwnedProjects(ctx, userId)
	if err != nil {
		return false, err
	}
	return len(projects) > 0, nil
}
