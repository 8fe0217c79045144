package mockapi

import (
	"context"
	"fmt"

	"github.com/MrEthical07/consoleauth/console"
	"github.com/MrEthical07/consoleauth/permission"
)

// SeedAccounts are the credentials created by Seed.
type SeedAccounts struct {
	AdminAccount    string
	AdminPassword   string
	ViewerAccount   string
	ViewerPassword  string
	DisabledAccount string
}

// DefaultSeedAccounts returns the dev server logins.
func DefaultSeedAccounts() SeedAccounts {
	return SeedAccounts{
		AdminAccount:    "admin",
		AdminPassword:   "Admin@123",
		ViewerAccount:   "viewer",
		ViewerPassword:  "Viewer@123",
		DisabledAccount: "disabled",
	}
}

type seedMenu struct {
	console.MenuNode
	children []seedMenu
}

func page(name, path, component, perms string, buttons ...seedMenu) seedMenu {
	return seedMenu{
		MenuNode: console.MenuNode{Name: name, Path: path, Component: component, Perms: perms, MenuType: console.MenuPage},
		children: buttons,
	}
}

func button(name, perms string) seedMenu {
	return seedMenu{MenuNode: console.MenuNode{Name: name, Perms: perms, MenuType: console.MenuButton, Visible: "0"}}
}

func crudButtons(resource string) []seedMenu {
	return []seedMenu{
		button("Create", "system:"+resource+":create"),
		button("Edit", "system:"+resource+":edit"),
		button("Delete", "system:"+resource+":delete"),
	}
}

var seedMenus = []seedMenu{
	page("Dashboard", "/dashboard", "dashboard/index", ""),
	{
		MenuNode: console.MenuNode{Name: "System", Path: "/system", MenuType: console.MenuDirectory},
		children: []seedMenu{
			page("Users", "user", "system/user/index", "system:user:list",
				append(crudButtons("user"), button("Reset password", "system:user:resetPwd"))...),
			page("Roles", "role", "system/role/index", "system:role:list", crudButtons("role")...),
			page("Departments", "dept", "system/dept/index", "system:dept:list", crudButtons("dept")...),
			page("Menus", "menu", "system/menu/index", "system:menu:list", crudButtons("menu")...),
			page("Dictionaries", "dict", "system/dict/index", "system:dict:list", crudButtons("dict")...),
		},
	},
	{
		MenuNode: console.MenuNode{Name: "Docs", Path: "https://example.com/docs", MenuType: console.MenuPage, IsFrame: "1"},
	},
}

var seedDicts = map[string][]console.DictData{
	"sys_user_sex": {
		{Label: "Unknown", Value: "0", SortOrder: 3},
		{Label: "Male", Value: "1", SortOrder: 1},
		{Label: "Female", Value: "2", SortOrder: 2},
	},
	"sys_normal_disable": {
		{Label: "Enabled", Value: "1", SortOrder: 1, ListClass: "primary"},
		{Label: "Disabled", Value: "0", SortOrder: 2, ListClass: "danger"},
	},
}

// Seed fills an empty directory with roles, menus, departments,
// dictionaries and the accounts in acc. A directory that already has users
// is left alone.
func (s *Server) Seed(ctx context.Context, acc SeedAccounts) error {
	existing, err := s.dir.ListUsers(ctx, UserFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	admin, err := s.dir.CreateRole(ctx, console.Role{Name: "Administrator", RoleKey: "admin", SortOrder: 1, Perms: []string{permission.All}})
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	viewer, err := s.dir.CreateRole(ctx, console.Role{Name: "Viewer", RoleKey: "viewer", SortOrder: 2, Perms: []string{
		"system:user:list", "system:dept:list", "system:dict:list",
	}})
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	for i, m := range seedMenus {
		if err := s.seedMenu(ctx, "", i+1, m); err != nil {
			return fmt.Errorf("seed menus: %w", err)
		}
	}

	head, err := s.dir.CreateDept(ctx, console.DeptNode{Name: "Head Office", SortOrder: 1})
	if err != nil {
		return fmt.Errorf("seed depts: %w", err)
	}
	for i, name := range []string{"Engineering", "Operations"} {
		if _, err := s.dir.CreateDept(ctx, console.DeptNode{Name: name, ParentPublicID: head.PublicID, SortOrder: i + 1}); err != nil {
			return fmt.Errorf("seed depts: %w", err)
		}
	}

	order := 1
	for _, typ := range []string{"sys_user_sex", "sys_normal_disable"} {
		if _, err := s.dir.CreateDictType(ctx, console.DictType{Name: typ, Type: typ, SortOrder: order}); err != nil {
			return fmt.Errorf("seed dicts: %w", err)
		}
		order++
		for _, e := range seedDicts[typ] {
			e.DictType = typ
			if _, err := s.dir.CreateDictData(ctx, e); err != nil {
				return fmt.Errorf("seed dicts: %w", err)
			}
		}
	}

	users := []struct {
		user     console.User
		password string
	}{
		{console.User{Account: acc.AdminAccount, Name: "Administrator", Email: "admin@example.com", Sex: "1", DeptPublicID: head.PublicID, RolePublicIDs: []string{admin.PublicID}}, acc.AdminPassword},
		{console.User{Account: acc.ViewerAccount, Name: "Viewer", Email: "viewer@example.com", Sex: "2", DeptPublicID: head.PublicID, RolePublicIDs: []string{viewer.PublicID}}, acc.ViewerPassword},
		{console.User{Account: acc.DisabledAccount, Name: "Disabled", Status: "0", RolePublicIDs: []string{viewer.PublicID}}, acc.ViewerPassword},
	}
	var adminID string
	for _, u := range users {
		if u.user.Account == "" {
			continue
		}
		hash, err := s.hasher.Hash(u.password)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		created, err := s.dir.CreateUser(ctx, u.user, hash)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		if u.user.Account == acc.AdminAccount {
			adminID = created.PublicID
		}
	}
	if adminID != "" {
		if err := s.dir.UpdateDept(ctx, console.DeptNode{PublicID: head.PublicID, LeaderPublicID: adminID}); err != nil {
			return fmt.Errorf("seed depts: %w", err)
		}
	}

	return s.ReloadRoles(ctx)
}

func (s *Server) seedMenu(ctx context.Context, parent string, order int, m seedMenu) error {
	node := m.MenuNode
	node.ParentPublicID = parent
	node.SortOrder = order
	created, err := s.dir.CreateMenu(ctx, node)
	if err != nil {
		return err
	}
	for i, c := range m.children {
		if err := s.seedMenu(ctx, created.PublicID, i+1, c); err != nil {
			return err
		}
	}
	return nil
}
