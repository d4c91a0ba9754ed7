package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Permission names consulted via RolePermissions.
const (
	PermViewVideos   = "view_videos"
	PermStreamVideos = "stream_videos"
	PermUploadVideos = "upload_videos"
	PermManageVideos = "manage_videos"
	PermManageUsers  = "manage_users"
	PermManageOrg    = "manage_organization"
)

// RolePermissions is the static role -> permission table.
// viewer is a subset of editor, which is a subset of admin.
var RolePermissions = map[Role][]string{
	RoleViewer: {PermViewVideos, PermStreamVideos},
	RoleEditor: {PermViewVideos, PermStreamVideos, PermUploadVideos, PermManageVideos},
	RoleAdmin:  {PermViewVideos, PermStreamVideos, PermUploadVideos, PermManageVideos, PermManageUsers, PermManageOrg},
}

// HasPermission reports whether the role grants the named permission.
func (r Role) HasPermission(permission string) bool {
	for _, p := range RolePermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}

// User represents an account scoped to exactly one tenant (organization).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	TenantID     primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
