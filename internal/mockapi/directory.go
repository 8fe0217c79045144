package mockapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/consoleauth/console"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  public_id      TEXT PRIMARY KEY,
  account        TEXT NOT NULL UNIQUE,
  name           TEXT NOT NULL DEFAULT '',
  email          TEXT NOT NULL DEFAULT '',
  avatar         TEXT NOT NULL DEFAULT '',
  sex            TEXT NOT NULL DEFAULT '0',
  status         TEXT NOT NULL DEFAULT '1',
  dept_public_id TEXT NOT NULL DEFAULT '',
  role_ids_json  TEXT NOT NULL DEFAULT '[]',
  password_hash  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS roles (
  public_id  TEXT PRIMARY KEY,
  name       TEXT NOT NULL,
  role_key   TEXT NOT NULL UNIQUE,
  status     TEXT NOT NULL DEFAULT '1',
  remark     TEXT NOT NULL DEFAULT '',
  sort_order INTEGER NOT NULL DEFAULT 0,
  perms_json TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS depts (
  public_id        TEXT PRIMARY KEY,
  name             TEXT NOT NULL,
  parent_public_id TEXT NOT NULL DEFAULT '',
  sort_order       INTEGER NOT NULL DEFAULT 0,
  leader_public_id TEXT NOT NULL DEFAULT '',
  status           TEXT NOT NULL DEFAULT '1'
);
CREATE TABLE IF NOT EXISTS menus (
  public_id        TEXT PRIMARY KEY,
  name             TEXT NOT NULL,
  parent_public_id TEXT NOT NULL DEFAULT '',
  sort_order       INTEGER NOT NULL DEFAULT 0,
  path             TEXT NOT NULL DEFAULT '',
  component        TEXT NOT NULL DEFAULT '',
  perms            TEXT NOT NULL DEFAULT '',
  is_frame         TEXT NOT NULL DEFAULT '0',
  menu_type        TEXT NOT NULL DEFAULT 'C',
  visible          TEXT NOT NULL DEFAULT '1',
  status           TEXT NOT NULL DEFAULT '1'
);
CREATE TABLE IF NOT EXISTS dict_types (
  public_id   TEXT PRIMARY KEY,
  name        TEXT NOT NULL,
  type        TEXT NOT NULL UNIQUE,
  sort_order  INTEGER NOT NULL DEFAULT 0,
  status      TEXT NOT NULL DEFAULT '1',
  create_time TEXT NOT NULL,
  update_time TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dict_data (
  public_id  TEXT PRIMARY KEY,
  dict_type  TEXT NOT NULL,
  label      TEXT NOT NULL,
  value      TEXT NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 0,
  status     TEXT NOT NULL DEFAULT '1',
  css_class  TEXT NOT NULL DEFAULT '',
  list_class TEXT NOT NULL DEFAULT ''
);
`

// Directory is the SQLite store behind the console endpoints.
//
// Queries never overlap on one connection: every rows set is drained and
// closed before the next statement runs.
type Directory struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDirectory opens (or creates) the database at path. ":memory:" keeps
// everything in process.
func OpenDirectory(path string) (*Directory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Directory{db: db, now: time.Now}, nil
}

// Close releases the database.
func (d *Directory) Close() error {
	return d.db.Close()
}

// Ping checks the database connection.
func (d *Directory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func newPublicID() string {
	return uuid.NewString()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList(s string) []string {
	var out []string
	if s != "" {
		_ = json.Unmarshal([]byte(s), &out)
	}
	return out
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

/*
====================================
USERS
*/

// userRecord is a user row including its credentials.
type userRecord struct {
	console.User
	PasswordHash string
}

const userColumns = `public_id, account, name, email, avatar, sex, status, dept_public_id, role_ids_json, password_hash`

func scanUser(row interface{ Scan(...any) error }) (userRecord, error) {
	var u userRecord
	var roles string
	err := row.Scan(&u.PublicID, &u.Account, &u.Name, &u.Email, &u.Avatar, &u.Sex, &u.Status, &u.DeptPublicID, &roles, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	u.RolePublicIDs = decodeList(roles)
	return u, err
}

func (d *Directory) userBy(ctx context.Context, column, value string) (userRecord, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

// UserByAccount returns the user signing in as account.
func (d *Directory) UserByAccount(ctx context.Context, account string) (userRecord, error) {
	return d.userBy(ctx, "account", strings.TrimSpace(account))
}

// UserByID returns the user publicID.
func (d *Directory) UserByID(ctx context.Context, publicID string) (userRecord, error) {
	return d.userBy(ctx, "public_id", publicID)
}

// UserFilter narrows ListUsers. Empty fields match everything.
type UserFilter struct {
	Account string
	Sex     string
	Status  []string
}

// ListUsers returns users ordered by account, without credentials.
func (d *Directory) ListUsers(ctx context.Context, f UserFilter) ([]console.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	var args []any
	if f.Account != "" {
		q += ` AND account LIKE ?`
		args = append(args, "%"+f.Account+"%")
	}
	if f.Sex != "" {
		q += ` AND sex = ?`
		args = append(args, f.Sex)
	}
	if len(f.Status) > 0 {
		q += ` AND status IN (?` + strings.Repeat(`, ?`, len(f.Status)-1) + `)`
		for _, s := range f.Status {
			args = append(args, s)
		}
	}
	q += ` ORDER BY account ASC`

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []console.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u.User)
	}
	return out, rows.Err()
}

// AccountExists reports whether account is taken.
func (d *Directory) AccountExists(ctx context.Context, account string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE account = ?`, strings.TrimSpace(account)).Scan(&n)
	return n > 0, err
}

// CreateUser inserts u with the given password hash and returns it with
// its new public ID.
func (d *Directory) CreateUser(ctx context.Context, u console.User, passwordHash string) (console.User, error) {
	u.PublicID = newPublicID()
	u.Account = strings.TrimSpace(u.Account)
	u.Password = ""
	if u.Sex == "" {
		u.Sex = "0"
	}
	if u.Status == "" {
		u.Status = "1"
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.PublicID, u.Account, u.Name, u.Email, u.Avatar, u.Sex, u.Status, u.DeptPublicID, encodeList(u.RolePublicIDs), passwordHash)
	if isUniqueViolation(err) {
		return console.User{}, ErrConflict
	}
	return u, err
}

// UpdateUser applies the non-empty fields of patch to the user
// patch.PublicID. A nil RolePublicIDs keeps the current roles.
func (d *Directory) UpdateUser(ctx context.Context, patch console.User) error {
	roles := sql.NullString{}
	if patch.RolePublicIDs != nil {
		roles = sql.NullString{String: encodeList(patch.RolePublicIDs), Valid: true}
	}
	res, err := d.db.ExecContext(ctx, `UPDATE users SET
		name = COALESCE(NULLIF(?, ''), name),
		email = COALESCE(NULLIF(?, ''), email),
		avatar = COALESCE(NULLIF(?, ''), avatar),
		sex = COALESCE(NULLIF(?, ''), sex),
		status = COALESCE(NULLIF(?, ''), status),
		dept_public_id = COALESCE(NULLIF(?, ''), dept_public_id),
		role_ids_json = COALESCE(?, role_ids_json)
		WHERE public_id = ?`,
		patch.Name, patch.Email, patch.Avatar, patch.Sex, patch.Status, patch.DeptPublicID, roles, patch.PublicID)
	return requireRow(res, err)
}

// SetPassword replaces the password hash of publicID.
func (d *Directory) SetPassword(ctx context.Context, publicID, passwordHash string) error {
	res, err := d.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE public_id = ?`, passwordHash, publicID)
	return requireRow(res, err)
}

// DeleteUser removes publicID.
func (d *Directory) DeleteUser(ctx context.Context, publicID string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE public_id = ?`, publicID)
	return requireRow(res, err)
}

// DeleteUsersByAccounts removes every listed account and returns how many
// existed.
func (d *Directory) DeleteUsersByAccounts(ctx context.Context, accounts []string) (int64, error) {
	if len(accounts) == 0 {
		return 0, nil
	}
	args := make([]any, len(accounts))
	for i, a := range accounts {
		args[i] = a
	}
	res, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE account IN (?`+strings.Repeat(`, ?`, len(accounts)-1)+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

/*
====================================
ROLES
*/

func scanRole(row interface{ Scan(...any) error }) (console.Role, error) {
	var r console.Role
	var perms string
	err := row.Scan(&r.PublicID, &r.Name, &r.RoleKey, &r.Status, &r.Remark, &r.SortOrder, &perms)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	r.Perms = decodeList(perms)
	return r, err
}

// ListRoles returns every role ordered by sort order.
func (d *Directory) ListRoles(ctx context.Context) ([]console.Role, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT public_id, name, role_key, status, remark, sort_order, perms_json FROM roles ORDER BY sort_order ASC, role_key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []console.Role{}
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateRole inserts r and returns it with its new public ID.
func (d *Directory) CreateRole(ctx context.Context, r console.Role) (console.Role, error) {
	r.PublicID = newPublicID()
	if r.Status == "" {
		r.Status = "1"
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO roles (public_id, name, role_key, status, remark, sort_order, perms_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.PublicID, r.Name, r.RoleKey, r.Status, r.Remark, r.SortOrder, encodeList(r.Perms))
	if isUniqueViolation(err) {
		return console.Role{}, ErrConflict
	}
	return r, err
}

// UpdateRole applies the non-empty fields of patch. A nil Perms keeps the
// current permissions.
func (d *Directory) UpdateRole(ctx context.Context, patch console.Role) error {
	perms := sql.NullString{}
	if patch.Perms != nil {
		perms = sql.NullString{String: encodeList(patch.Perms), Valid: true}
	}
	res, err := d.db.ExecContext(ctx, `UPDATE roles SET
		name = COALESCE(NULLIF(?, ''), name),
		role_key = COALESCE(NULLIF(?, ''), role_key),
		status = COALESCE(NULLIF(?, ''), status),
		remark = COALESCE(NULLIF(?, ''), remark),
		sort_order = COALESCE(NULLIF(?, 0), sort_order),
		perms_json = COALESCE(?, perms_json)
		WHERE public_id = ?`,
		patch.Name, patch.RoleKey, patch.Status, patch.Remark, patch.SortOrder, perms, patch.PublicID)
	return requireRow(res, err)
}

// DeleteRole removes publicID.
func (d *Directory) DeleteRole(ctx context.Context, publicID string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM roles WHERE public_id = ?`, publicID)
	return requireRow(res, err)
}

// RoleKeys maps role public IDs to the keys of enabled roles.
func (d *Directory) RoleKeys(ctx context.Context, publicIDs []string) ([]string, error) {
	roles, err := d.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(publicIDs))
	for _, id := range publicIDs {
		want[id] = true
	}
	keys := []string{}
	for _, r := range roles {
		if want[r.PublicID] && r.Status == "1" {
			keys = append(keys, r.RoleKey)
		}
	}
	return keys, nil
}

/*
====================================
DEPTS
*/

// ListDepts returns the department forest ordered by sort order. Leader
// names are filled from the users table.
func (d *Directory) ListDepts(ctx context.Context) ([]console.DeptNode, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT d.public_id, d.name, d.parent_public_id, d.sort_order, d.leader_public_id, d.status,
		COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM depts d LEFT JOIN users u ON u.public_id = d.leader_public_id
		ORDER BY d.sort_order ASC, d.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []console.DeptNode
	for rows.Next() {
		var n console.DeptNode
		if err := rows.Scan(&n.PublicID, &n.Name, &n.ParentPublicID, &n.SortOrder, &n.LeaderPublicID, &n.Status, &n.LeaderName, &n.LeaderEmail); err != nil {
			return nil, err
		}
		flat = append(flat, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buildDeptTree(flat), nil
}

func buildDeptTree(flat []console.DeptNode) []console.DeptNode {
	children := map[string][]console.DeptNode{}
	ids := map[string]bool{}
	for _, n := range flat {
		ids[n.PublicID] = true
	}
	for _, n := range flat {
		parent := n.ParentPublicID
		if !ids[parent] {
			parent = ""
		}
		children[parent] = append(children[parent], n)
	}
	var attach func(parent string) []console.DeptNode
	attach = func(parent string) []console.DeptNode {
		nodes := children[parent]
		out := make([]console.DeptNode, len(nodes))
		for i, n := range nodes {
			n.Children = attach(n.PublicID)
			out[i] = n
		}
		return out
	}
	return attach("")
}

// CreateDept inserts n and returns it with its new public ID.
func (d *Directory) CreateDept(ctx context.Context, n console.DeptNode) (console.DeptNode, error) {
	n.PublicID = newPublicID()
	n.Children = nil
	if n.Status == "" {
		n.Status = "1"
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO depts (public_id, name, parent_public_id, sort_order, leader_public_id, status) VALUES (?, ?, ?, ?, ?, ?)`,
		n.PublicID, n.Name, n.ParentPublicID, n.SortOrder, n.LeaderPublicID, n.Status)
	return n, err
}

// UpdateDept applies the non-empty fields of patch.
func (d *Directory) UpdateDept(ctx context.Context, patch console.DeptNode) error {
	res, err := d.db.ExecContext(ctx, `UPDATE depts SET
		name = COALESCE(NULLIF(?, ''), name),
		parent_public_id = COALESCE(NULLIF(?, ''), parent_public_id),
		sort_order = COALESCE(NULLIF(?, 0), sort_order),
		leader_public_id = COALESCE(NULLIF(?, ''), leader_public_id),
		status = COALESCE(NULLIF(?, ''), status)
		WHERE public_id = ?`,
		patch.Name, patch.ParentPublicID, patch.SortOrder, patch.LeaderPublicID, patch.Status, patch.PublicID)
	return requireRow(res, err)
}

// DeleteDept removes publicID. Departments with children are kept and
// ErrConflict is returned.
func (d *Directory) DeleteDept(ctx context.Context, publicID string) error {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM depts WHERE parent_public_id = ?`, publicID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := d.db.ExecContext(ctx, `DELETE FROM depts WHERE public_id = ?`, publicID)
	return requireRow(res, err)
}

/*
====================================
MENUS
*/

// ListMenus returns the menu forest ordered by sort order.
func (d *Directory) ListMenus(ctx context.Context) ([]console.MenuNode, error) {
	flat, err := d.listMenusFlat(ctx)
	if err != nil {
		return nil, err
	}
	return buildMenuTree(flat), nil
}

func (d *Directory) listMenusFlat(ctx context.Context) ([]console.MenuNode, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT public_id, name, parent_public_id, sort_order, path, component, perms, is_frame, menu_type, visible, status
		FROM menus ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []console.MenuNode
	for rows.Next() {
		var m console.MenuNode
		if err := rows.Scan(&m.PublicID, &m.Name, &m.ParentPublicID, &m.SortOrder, &m.Path, &m.Component, &m.Perms, &m.IsFrame, &m.MenuType, &m.Visible, &m.Status); err != nil {
			return nil, err
		}
		flat = append(flat, m)
	}
	return flat, rows.Err()
}

func buildMenuTree(flat []console.MenuNode) []console.MenuNode {
	children := map[string][]console.MenuNode{}
	ids := map[string]bool{}
	for _, m := range flat {
		ids[m.PublicID] = true
	}
	for _, m := range flat {
		parent := m.ParentPublicID
		if !ids[parent] {
			parent = ""
		}
		children[parent] = append(children[parent], m)
	}
	var attach func(parent string) []console.MenuNode
	attach = func(parent string) []console.MenuNode {
		nodes := children[parent]
		out := make([]console.MenuNode, len(nodes))
		for i, m := range nodes {
			m.Children = attach(m.PublicID)
			out[i] = m
		}
		return out
	}
	return attach("")
}

// CreateMenu inserts m and returns it with its new public ID.
func (d *Directory) CreateMenu(ctx context.Context, m console.MenuNode) (console.MenuNode, error) {
	m.PublicID = newPublicID()
	m.Children = nil
	if m.MenuType == "" {
		m.MenuType = console.MenuPage
	}
	if m.IsFrame == "" {
		m.IsFrame = "0"
	}
	if m.Visible == "" {
		m.Visible = "1"
	}
	if m.Status == "" {
		m.Status = "1"
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO menus (public_id, name, parent_public_id, sort_order, path, component, perms, is_frame, menu_type, visible, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.PublicID, m.Name, m.ParentPublicID, m.SortOrder, m.Path, m.Component, m.Perms, m.IsFrame, m.MenuType, m.Visible, m.Status)
	return m, err
}

// UpdateMenu applies the non-empty fields of patch.
func (d *Directory) UpdateMenu(ctx context.Context, patch console.MenuNode) error {
	res, err := d.db.ExecContext(ctx, `UPDATE menus SET
		name = COALESCE(NULLIF(?, ''), name),
		parent_public_id = COALESCE(NULLIF(?, ''), parent_public_id),
		sort_order = COALESCE(NULLIF(?, 0), sort_order),
		path = COALESCE(NULLIF(?, ''), path),
		component = COALESCE(NULLIF(?, ''), component),
		perms = COALESCE(NULLIF(?, ''), perms),
		is_frame = COALESCE(NULLIF(?, ''), is_frame),
		menu_type = COALESCE(NULLIF(?, ''), menu_type),
		visible = COALESCE(NULLIF(?, ''), visible),
		status = COALESCE(NULLIF(?, ''), status)
		WHERE public_id = ?`,
		patch.Name, patch.ParentPublicID, patch.SortOrder, patch.Path, patch.Component, patch.Perms,
		patch.IsFrame, patch.MenuType, patch.Visible, patch.Status, patch.PublicID)
	return requireRow(res, err)
}

// DeleteMenu removes publicID and its whole subtree.
func (d *Directory) DeleteMenu(ctx context.Context, publicID string) error {
	res, err := d.db.ExecContext(ctx, `WITH RECURSIVE sub(id) AS (
		SELECT public_id FROM menus WHERE public_id = ?
		UNION ALL
		SELECT m.public_id FROM menus m JOIN sub ON m.parent_public_id = sub.id
	) DELETE FROM menus WHERE public_id IN (SELECT id FROM sub)`, publicID)
	return requireRow(res, err)
}

/*
====================================
DICTIONARIES
*/

// ListDictTypes returns every dictionary type.
func (d *Directory) ListDictTypes(ctx context.Context) ([]console.DictType, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT public_id, name, type, sort_order, status, create_time, update_time FROM dict_types ORDER BY sort_order ASC, type ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []console.DictType{}
	for rows.Next() {
		var t console.DictType
		if err := rows.Scan(&t.PublicID, &t.Name, &t.Type, &t.SortOrder, &t.Status, &t.CreateTime, &t.UpdateTime); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *Directory) timestamp() string {
	return d.now().UTC().Format(time.DateTime)
}

// CreateDictType inserts t and returns it with its new public ID.
func (d *Directory) CreateDictType(ctx context.Context, t console.DictType) (console.DictType, error) {
	t.PublicID = newPublicID()
	if t.Status == "" {
		t.Status = "1"
	}
	t.CreateTime = d.timestamp()
	t.UpdateTime = t.CreateTime
	_, err := d.db.ExecContext(ctx, `INSERT INTO dict_types (public_id, name, type, sort_order, status, create_time, update_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.PublicID, t.Name, t.Type, t.SortOrder, t.Status, t.CreateTime, t.UpdateTime)
	if isUniqueViolation(err) {
		return console.DictType{}, ErrConflict
	}
	return t, err
}

// UpdateDictType applies the non-empty fields of patch. Renaming the type
// key moves its entries along.
func (d *Directory) UpdateDictType(ctx context.Context, patch console.DictType) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var old string
	if err := tx.QueryRowContext(ctx, `SELECT type FROM dict_types WHERE public_id = ?`, patch.PublicID).Scan(&old); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE dict_types SET
		name = COALESCE(NULLIF(?, ''), name),
		type = COALESCE(NULLIF(?, ''), type),
		sort_order = COALESCE(NULLIF(?, 0), sort_order),
		status = COALESCE(NULLIF(?, ''), status),
		update_time = ?
		WHERE public_id = ?`,
		patch.Name, patch.Type, patch.SortOrder, patch.Status, d.timestamp(), patch.PublicID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if patch.Type != "" && patch.Type != old {
		if _, err := tx.ExecContext(ctx, `UPDATE dict_data SET dict_type = ? WHERE dict_type = ?`, patch.Type, old); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteDictType removes publicID and its entries.
func (d *Directory) DeleteDictType(ctx context.Context, publicID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var typ string
	if err := tx.QueryRowContext(ctx, `SELECT type FROM dict_types WHERE public_id = ?`, publicID).Scan(&typ); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dict_data WHERE dict_type = ?`, typ); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dict_types WHERE public_id = ?`, publicID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDictData returns the entries of dictType, or every entry when
// dictType is empty.
func (d *Directory) ListDictData(ctx context.Context, dictType string) ([]console.DictData, error) {
	q := `SELECT public_id, dict_type, label, value, sort_order, status, css_class, list_class FROM dict_data`
	var args []any
	if dictType != "" {
		q += ` WHERE dict_type = ?`
		args = append(args, dictType)
	}
	q += ` ORDER BY sort_order ASC, label ASC`

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []console.DictData{}
	for rows.Next() {
		var e console.DictData
		if err := rows.Scan(&e.PublicID, &e.DictType, &e.Label, &e.Value, &e.SortOrder, &e.Status, &e.CSSClass, &e.ListClass); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateDictData inserts e and returns it with its new public ID.
func (d *Directory) CreateDictData(ctx context.Context, e console.DictData) (console.DictData, error) {
	e.PublicID = newPublicID()
	if e.Status == "" {
		e.Status = "1"
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO dict_data (public_id, dict_type, label, value, sort_order, status, css_class, list_class) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.PublicID, e.DictType, e.Label, e.Value, e.SortOrder, e.Status, e.CSSClass, e.ListClass)
	return e, err
}

// UpdateDictData applies the non-empty fields of patch.
func (d *Directory) UpdateDictData(ctx context.Context, patch console.DictData) error {
	res, err := d.db.ExecContext(ctx, `UPDATE dict_data SET
		label = COALESCE(NULLIF(?, ''), label),
		value = COALESCE(NULLIF(?, ''), value),
		sort_order = COALESCE(NULLIF(?, 0), sort_order),
		status = COALESCE(NULLIF(?, ''), status),
		css_class = COALESCE(NULLIF(?, ''), css_class),
		list_class = COALESCE(NULLIF(?, ''), list_class)
		WHERE public_id = ?`,
		patch.Label, patch.Value, patch.SortOrder, patch.Status, patch.CSSClass, patch.ListClass, patch.PublicID)
	return requireRow(res, err)
}

// DeleteDictData removes publicID.
func (d *Directory) DeleteDictData(ctx context.Context, publicID string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM dict_data WHERE public_id = ?`, publicID)
	return requireRow(res, err)
}

/*
====================================
NAVIGATION
*/

// Navigation builds the router and side bar trees visible to perms.
// Disabled menus and buttons are skipped; a directory without any visible
// page is dropped.
func (d *Directory) Navigation(ctx context.Context, allowed func(perm string) bool) ([]console.RouterItem, []console.SideBarItem, error) {
	menus, err := d.ListMenus(ctx)
	if err != nil {
		return nil, nil, err
	}
	routers, bar := navFrom(menus, "", allowed)
	return routers, bar, nil
}

func navFrom(nodes []console.MenuNode, base string, allowed func(string) bool) ([]console.RouterItem, []console.SideBarItem) {
	routers := []console.RouterItem{}
	bar := []console.SideBarItem{}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].SortOrder < nodes[j].SortOrder })

	for _, m := range nodes {
		if m.Status != "1" || m.MenuType == console.MenuButton {
			continue
		}
		if m.Perms != "" && !allowed(m.Perms) {
			continue
		}

		full := joinRoute(base, m.Path)
		item := console.RouterItem{
			Name:     m.Name,
			Path:     m.Path,
			Visible:  m.Visible == "1",
			IsFrame:  m.IsFrame == "1",
			MenuType: m.MenuType,
		}
		side := console.SideBarItem{Title: m.Name, URL: full, Frame: m.IsFrame == "1"}

		if m.MenuType == console.MenuDirectory {
			item.Children, side.Children = navFrom(m.Children, full, allowed)
			if len(item.Children) == 0 {
				continue
			}
			side.URL = ""
		} else {
			component := m.Component
			item.Component = &component
			item.Children = []console.RouterItem{}
			side.Children = []console.SideBarItem{}
		}

		routers = append(routers, item)
		if item.Visible {
			bar = append(bar, side)
		}
	}
	return routers, bar
}

func joinRoute(base, p string) string {
	if p == "" {
		return base
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "://") {
		return p
	}
	return strings.TrimRight(base, "/") + "/" + p
}
