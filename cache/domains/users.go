package domains

import (
	"context"
	"time"

	"github.com/communityhub/platform/cache"
)

// User tags.
const (
	TagUsers       = "users"
	TagMemberships = "memberships"
)

const membershipsTTL = 15 * time.Minute

// UserProfile is the cached public profile of a member.
type UserProfile struct {
	ID          string    `cbor:"id" json:"id"`
	DisplayName string    `cbor:"displayName,omitempty" json:"displayName,omitempty"`
	Email       string    `cbor:"email,omitempty" json:"email,omitempty"`
	AvatarURL   string    `cbor:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Bio         string    `cbor:"bio,omitempty" json:"bio,omitempty"`
	Roles       []string  `cbor:"roles,omitempty" json:"roles,omitempty"`
	JoinedAt    time.Time `cbor:"joinedAt,omitempty" json:"joinedAt,omitzero"`
}

// GroupMembership links a member to a community group.
type GroupMembership struct {
	GroupID   string `cbor:"groupId" json:"groupId"`
	GroupName string `cbor:"groupName,omitempty" json:"groupName,omitempty"`
	Role      string `cbor:"role,omitempty" json:"role,omitempty"`
}

// Users caches member profiles and group memberships.
type Users struct {
	m *cache.Manager
}

// NewUsers wraps m, which should be configured with UsersConfig.
func NewUsers(m *cache.Manager) *Users {
	return &Users{m: m}
}

// Manager returns the underlying manager.
func (u *Users) Manager() *cache.Manager { return u.m }

// CacheUserProfile stores profile for the domain default TTL.
func (u *Users) CacheUserProfile(ctx context.Context, profile UserProfile) bool {
	return u.m.Set(ctx, key("profile", profile.ID), profile,
		cache.WithTags(TagUsers, idTag("user", profile.ID)),
	)
}

// GetCachedUserProfile returns the cached profile of userID.
func (u *Users) GetCachedUserProfile(ctx context.Context, userID string) (UserProfile, bool) {
	return cache.Get[UserProfile](ctx, u.m, key("profile", userID))
}

// CacheGroupMemberships stores the group memberships of userID.
func (u *Users) CacheGroupMemberships(ctx context.Context, userID string, memberships []GroupMembership) bool {
	return u.m.Set(ctx, key("memberships", userID), memberships,
		cache.WithTTL(membershipsTTL),
		cache.WithTags(TagUsers, idTag("user", userID), TagMemberships),
	)
}

// GetCachedGroupMemberships returns the cached group memberships of userID.
func (u *Users) GetCachedGroupMemberships(ctx context.Context, userID string) ([]GroupMembership, bool) {
	return cache.Get[[]GroupMembership](ctx, u.m, key("memberships", userID))
}

// InvalidateUser drops everything cached about userID.
func (u *Users) InvalidateUser(ctx context.Context, userID string) int {
	return u.m.InvalidateByTags(ctx, idTag("user", userID))
}

// InvalidateMemberships drops the memberships of every user, e.g. after a group is removed.
func (u *Users) InvalidateMemberships(ctx context.Context) int {
	return u.m.InvalidateByTags(ctx, TagMemberships)
}

// InvalidateUserCache drops every entry of the users domain.
func (u *Users) InvalidateUserCache(ctx context.Context) int {
	return u.m.InvalidateByTags(ctx, TagUsers)
}
