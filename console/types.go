package console

import "github.com/MrEthical07/consoleauth/permission"

// User is the profile part of UserInfo and a row of the user list.
type User struct {
	PublicID      string   `json:"publicId,omitempty"`
	Name          string   `json:"name,omitempty"`
	Account       string   `json:"account,omitempty"`
	Email         string   `json:"email,omitempty"`
	Avatar        string   `json:"avatar,omitempty"`
	Sex           string   `json:"sex,omitempty"`
	Status        string   `json:"status,omitempty"`
	DeptPublicID  string   `json:"deptPublicId,omitempty"`
	RolePublicIDs []string `json:"rolePublicIds,omitempty"`
	Password      string   `json:"password,omitempty"`
}

// UserInfo is the reply of GET /getInfo.
type UserInfo struct {
	User        User     `json:"user"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// PermissionSet returns the user's permissions as a set.
func (u UserInfo) PermissionSet() permission.Set {
	return permission.NewSet(u.Permissions...)
}

// HasPerm reports whether the user holds perm or the "*:*:*" wildcard.
func (u UserInfo) HasPerm(perm string) bool {
	return u.PermissionSet().Has(perm)
}

// RouterItem is one node of GET /getRouters.
type RouterItem struct {
	Name      string       `json:"name"`
	Path      string       `json:"path"`
	Component *string      `json:"component"`
	Visible   bool         `json:"visible"`
	IsFrame   bool         `json:"isFrame"`
	MenuType  string       `json:"menuType"`
	Children  []RouterItem `json:"children"`
}

// SideBarItem is one node of GET /getSideBarMenus.
type SideBarItem struct {
	Title    string        `json:"title"`
	URL      string        `json:"url"`
	Frame    bool          `json:"frame"`
	Children []SideBarItem `json:"children"`
}

// Role is a row of the role list.
type Role struct {
	PublicID  string `json:"publicId,omitempty"`
	Name      string `json:"name,omitempty"`
	RoleKey   string `json:"roleKey,omitempty"`
	Status    string `json:"status,omitempty"`
	Remark    string `json:"remark,omitempty"`
	SortOrder int    `json:"sortOrder,omitempty"`
	// Perms are the menu permissions granted to the role.
	Perms []string `json:"perms,omitempty"`
}

// DeptNode is a node of the department tree.
type DeptNode struct {
	PublicID       string     `json:"publicId,omitempty"`
	Name           string     `json:"name,omitempty"`
	ParentPublicID string     `json:"parentPublicId,omitempty"`
	SortOrder      int        `json:"sortOrder,omitempty"`
	LeaderPublicID string     `json:"leaderPublicId,omitempty"`
	LeaderName     string     `json:"leaderName,omitempty"`
	LeaderEmail    string     `json:"leaderEmail,omitempty"`
	Status         string     `json:"status,omitempty"`
	Children       []DeptNode `json:"children,omitempty"`
}

// Menu types.
const (
	MenuDirectory = "M"
	MenuPage      = "C"
	MenuButton    = "F"
)

// MenuNode is a node of the menu tree. Flag fields use "0" and "1".
type MenuNode struct {
	PublicID       string     `json:"publicId,omitempty"`
	Name           string     `json:"name,omitempty"`
	ParentPublicID string     `json:"parentPublicId,omitempty"`
	SortOrder      int        `json:"sortOrder,omitempty"`
	Path           string     `json:"path,omitempty"`
	Component      string     `json:"component,omitempty"`
	Perms          string     `json:"perms,omitempty"`
	IsFrame        string     `json:"isFrame,omitempty"`
	MenuType       string     `json:"menuType,omitempty"`
	Visible        string     `json:"visible,omitempty"`
	Status         string     `json:"status,omitempty"`
	Children       []MenuNode `json:"children,omitempty"`
}

// DictType is a dictionary type definition.
type DictType struct {
	PublicID   string `json:"publicId,omitempty"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	SortOrder  int    `json:"sortOrder,omitempty"`
	Status     string `json:"status,omitempty"`
	CreateTime string `json:"createTime,omitempty"`
	UpdateTime string `json:"updateTime,omitempty"`
}

// DictData is one entry of a dictionary.
type DictData struct {
	PublicID  string `json:"publicId,omitempty"`
	DictType  string `json:"dictType,omitempty"`
	Label     string `json:"label,omitempty"`
	Value     string `json:"value,omitempty"`
	SortOrder int    `json:"sortOrder,omitempty"`
	Status    string `json:"status,omitempty"`
	CSSClass  string `json:"cssClass,omitempty"`
	ListClass string `json:"listClass,omitempty"`
}

// DictOption is a label/value pair for select inputs.
type DictOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Account  string `json:"account"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	Sex      string `json:"sex,omitempty"`
}
