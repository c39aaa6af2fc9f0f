package models

import (
	"gorm.io/gorm"
)

// Permission is the access level a user holds on a dashboard.
// Ordering: VIEW < EDIT < ADMIN.
type Permission string

const (
	PermissionView  Permission = "VIEW"
	PermissionEdit  Permission = "EDIT"
	PermissionAdmin Permission = "ADMIN"
)

func permissionRank(p Permission) int {
	switch p {
	case PermissionView:
		return 1
	case PermissionEdit:
		return 2
	case PermissionAdmin:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether p grants everything min grants.
func (p Permission) AtLeast(min Permission) bool {
	return permissionRank(p) >= permissionRank(min) && permissionRank(p) > 0
}

// ValidSharePermission reports whether p may be granted through the share
// API. ADMIN shares are only created through direct administrative writes.
func ValidSharePermission(p Permission) bool {
	return p == PermissionView || p == PermissionEdit
}

type Dashboard struct {
	gorm.Model
	OwnerID     uint     `gorm:"not null;index" json:"owner_id"`
	Title       string   `gorm:"not null" json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `gorm:"default:false" json:"is_public"`
	Owner       User     `gorm:"foreignKey:OwnerID" json:"-"`
	Widgets     []Widget `json:"widgets,omitempty"`
}

type WidgetType string

const (
	WidgetChart  WidgetType = "chart"
	WidgetTable  WidgetType = "table"
	WidgetMetric WidgetType = "metric"
)

type Widget struct {
	gorm.Model
	DashboardID uint       `gorm:"not null;index" json:"dashboard_id"`
	Type        WidgetType `gorm:"not null" json:"type"`
	Title       string     `gorm:"not null" json:"title"`
	Config      string     `gorm:"type:text" json:"config"`
	PosX        int        `json:"pos_x"`
	PosY        int        `json:"pos_y"`
	Width       int        `gorm:"default:4" json:"width"`
	Height      int        `gorm:"default:3" json:"height"`
}

// DashboardShare grants a non-owner user access to a dashboard. The owner
// never appears as a share row; ownership alone is ADMIN.
type DashboardShare struct {
	gorm.Model
	DashboardID uint       `gorm:"not null;uniqueIndex:idx_dashboard_user" json:"dashboard_id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_dashboard_user" json:"user_id"`
	Permission  Permission `gorm:"not null" json:"permission"`
	Dashboard   Dashboard  `gorm:"foreignKey:DashboardID" json:"-"`
	User        User       `gorm:"foreignKey:UserID" json:"-"`
}
