package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
	"github.com/mmynk/tripsplit/pkg/api/apiconnect"
)

var (
	ErrGroupNameRequired = errors.New("group name is required")
	ErrMembersRequired   = errors.New("at least one member is required")
	ErrInvalidTripDates  = errors.New("trip end date is before its start date")
)

// GroupService implements the Connect GroupService
type GroupService struct {
	apiconnect.UnimplementedGroupServiceHandler
	store    storage.GroupStore
	notifier *Notifier
	logger   *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.GroupStore, notifier *Notifier, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, notifier: notifier, logger: logger}
}

// CreateGroup creates a new group. The caller always becomes its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
		"actor", actor,
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrGroupNameRequired)
	}
	if req.Msg.StartDate != 0 && req.Msg.EndDate != 0 && req.Msg.EndDate < req.Msg.StartDate {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrInvalidTripDates)
	}

	group := &models.Group{
		Name:        name,
		Destination: strings.TrimSpace(req.Msg.Destination),
		StartDate:   req.Msg.StartDate,
		EndDate:     req.Msg.EndDate,
		Members:     append([]string{actor}, trimMembers(req.Msg.Members)...),
		CreatedBy:   actor,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		s.logger.Error("CreateGroup failed", "error", err)
		return nil, storageError(err)
	}

	// Reload so the roster reflects de-duplication by the store
	created, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		s.logger.Error("Failed to fetch created group", "group_id", group.ID, "error", err)
		return nil, storageError(err)
	}

	s.logger.Info("Group created", "group_id", created.ID)

	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(created)}), nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, actor)
	if err != nil {
		s.logger.Warn("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, err
	}

	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups retrieves the groups the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsForMember(ctx, actor)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, storageError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, group := range groups {
		out[i] = toAPIGroup(group)
	}

	s.logger.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMember invites people to a group. Existing members are skipped.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("AddMember request received",
		"group_id", req.Msg.GroupID,
		"members_count", len(req.Msg.Members),
	)

	if _, err := memberGroup(ctx, s.store, req.Msg.GroupID, actor); err != nil {
		return nil, err
	}

	members := trimMembers(req.Msg.Members)
	if len(members) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrMembersRequired)
	}

	if err := s.store.AddGroupMembers(ctx, req.Msg.GroupID, members); err != nil {
		s.logger.Error("AddMember failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, storageError(err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, storageError(err)
	}
	s.notifier.GroupChanged(group)

	s.logger.Info("Members added", "group_id", group.ID, "members", len(group.Members))

	return connect.NewResponse(&api.AddMemberResponse{Group: toAPIGroup(group)}), nil
}

// trimMembers trims member ids and drops blank ones.
func trimMembers(members []string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
