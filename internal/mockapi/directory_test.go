package mockapi

import (
	"context"
	"testing"

	"github.com/MrEthical07/consoleauth/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := OpenDirectory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDirectoryUpdateUserKeepsUnsetFields(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	u, err := d.CreateUser(ctx, console.User{Account: " erin ", Name: "Erin", Email: "erin@example.com", RolePublicIDs: []string{"r1"}}, "hash")
	require.NoError(t, err)
	assert.Equal(t, "erin", u.Account)
	assert.Equal(t, "1", u.Status)
	assert.Equal(t, "0", u.Sex)

	require.NoError(t, d.UpdateUser(ctx, console.User{PublicID: u.PublicID, Status: "0"}))

	got, err := d.UserByAccount(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, "Erin", got.Name)
	assert.Equal(t, "erin@example.com", got.Email)
	assert.Equal(t, "0", got.Status)
	assert.Equal(t, []string{"r1"}, got.RolePublicIDs)
	assert.Equal(t, "hash", got.PasswordHash)

	require.NoError(t, d.UpdateUser(ctx, console.User{PublicID: u.PublicID, RolePublicIDs: []string{}}))
	got, err = d.UserByID(ctx, u.PublicID)
	require.NoError(t, err)
	assert.Empty(t, got.RolePublicIDs)

	assert.ErrorIs(t, d.UpdateUser(ctx, console.User{PublicID: "missing", Name: "x"}), ErrNotFound)
	_, err = d.UserByAccount(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectoryDeleteUsersByAccounts(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()
	for _, a := range []string{"a", "b", "c"} {
		_, err := d.CreateUser(ctx, console.User{Account: a}, "h")
		require.NoError(t, err)
	}

	n, err := d.DeleteUsersByAccounts(ctx, []string{"a", "c", "zz"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := d.ListUsers(ctx, UserFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].Account)

	n, err = d.DeleteUsersByAccounts(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectoryRoleKeysSkipsDisabledRoles(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	on, err := d.CreateRole(ctx, console.Role{Name: "On", RoleKey: "on"})
	require.NoError(t, err)
	off, err := d.CreateRole(ctx, console.Role{Name: "Off", RoleKey: "off", Status: "0"})
	require.NoError(t, err)
	_, err = d.CreateRole(ctx, console.Role{Name: "Dup", RoleKey: "on"})
	assert.ErrorIs(t, err, ErrConflict)

	keys, err := d.RoleKeys(ctx, []string{on.PublicID, off.PublicID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"on"}, keys)
}

func TestBuildMenuTreePromotesOrphans(t *testing.T) {
	tree := buildMenuTree([]console.MenuNode{
		{PublicID: "root", Name: "Root"},
		{PublicID: "child", Name: "Child", ParentPublicID: "root"},
		{PublicID: "orphan", Name: "Orphan", ParentPublicID: "gone"},
	})
	require.Len(t, tree, 2)
	assert.Equal(t, "Root", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Child", tree[0].Children[0].Name)
	assert.Equal(t, "Orphan", tree[1].Name)
}

func TestNavigationDropsEmptyDirectoriesAndHiddenItems(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	dir, err := d.CreateMenu(ctx, console.MenuNode{Name: "Admin", Path: "/admin", MenuType: console.MenuDirectory, SortOrder: 1})
	require.NoError(t, err)
	_, err = d.CreateMenu(ctx, console.MenuNode{Name: "Secret", Path: "secret", Component: "admin/secret", Perms: "admin:secret:view", ParentPublicID: dir.PublicID})
	require.NoError(t, err)
	_, err = d.CreateMenu(ctx, console.MenuNode{Name: "Hidden", Path: "/hidden", Component: "hidden", Visible: "0", SortOrder: 2})
	require.NoError(t, err)
	_, err = d.CreateMenu(ctx, console.MenuNode{Name: "Off", Path: "/off", Component: "off", Status: "0", SortOrder: 3})
	require.NoError(t, err)

	none := func(string) bool { return false }
	routers, bar, err := d.Navigation(ctx, none)
	require.NoError(t, err)
	require.Len(t, routers, 1)
	assert.Equal(t, "Hidden", routers[0].Name)
	assert.False(t, routers[0].Visible)
	assert.Empty(t, bar)

	all := func(string) bool { return true }
	routers, bar, err = d.Navigation(ctx, all)
	require.NoError(t, err)
	require.Len(t, routers, 2)
	assert.Equal(t, []string{"/admin/secret"}, console.FlattenSideBar(bar))
	require.NotNil(t, routers[0].Children[0].Component)
	assert.Equal(t, "admin/secret", *routers[0].Children[0].Component)
}

func TestDictTypeRenameMovesEntries(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	typ, err := d.CreateDictType(ctx, console.DictType{Name: "Color", Type: "color"})
	require.NoError(t, err)
	assert.NotEmpty(t, typ.CreateTime)
	_, err = d.CreateDictData(ctx, console.DictData{DictType: "color", Label: "Red", Value: "r"})
	require.NoError(t, err)
	_, err = d.CreateDictType(ctx, console.DictType{Name: "Other", Type: "colour"})
	require.NoError(t, err)

	assert.ErrorIs(t, d.UpdateDictType(ctx, console.DictType{PublicID: typ.PublicID, Type: "colour"}), ErrConflict)
	require.NoError(t, d.UpdateDictType(ctx, console.DictType{PublicID: typ.PublicID, Type: "hue"}))

	data, err := d.ListDictData(ctx, "hue")
	require.NoError(t, err)
	assert.Len(t, data, 1)
	assert.ErrorIs(t, d.DeleteDictType(ctx, "missing"), ErrNotFound)
}
