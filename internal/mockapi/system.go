package mockapi

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/consoleauth/console"
	"github.com/MrEthical07/consoleauth/middleware"
	"github.com/MrEthical07/consoleauth/password"
	"github.com/MrEthical07/consoleauth/permission"
	"github.com/go-chi/chi/v5"
)

func (s *Server) systemRoutes(r chi.Router) {
	perm := func(p string) func(http.Handler) http.Handler {
		return middleware.RequirePerm(s, p)
	}

	r.Route("/user", func(r chi.Router) {
		r.With(perm("system:user:list")).Get("/list", s.listUsers)
		r.Get("/checkUserAccount", s.checkUserAccount)
		r.With(perm("system:user:create")).Post("/create", s.createUser)
		r.With(perm("system:user:edit")).Post("/update", s.updateUser)
		r.With(perm("system:user:resetPwd")).Post("/reset-password", s.resetPassword)
		r.With(perm("system:user:delete")).Delete("/delete/{publicId}", s.deleteUser)
		r.With(perm("system:user:delete")).Delete("/delete-by-accounts", s.deleteUsersByAccounts)
	})

	r.Route("/role", func(r chi.Router) {
		r.With(perm("system:role:list")).Get("/list", s.listRoles)
		r.With(perm("system:role:create")).Post("/create", s.createRole)
		r.With(perm("system:role:edit")).Post("/update", s.updateRole)
		r.With(perm("system:role:delete")).Delete("/delete/{publicId}", s.deleteRole)
	})

	r.Route("/dept", func(r chi.Router) {
		r.With(perm("system:dept:list")).Get("/list", s.listDepts)
		r.With(perm("system:dept:create")).Post("/create", s.createDept)
		r.With(perm("system:dept:edit")).Post("/update", s.updateDept)
		r.With(perm("system:dept:delete")).Delete("/delete", s.deleteDept)
	})

	r.Route("/menu", func(r chi.Router) {
		r.With(perm("system:menu:list")).Get("/list", s.listMenus)
		r.With(perm("system:menu:create")).Post("/create", s.createMenu)
		r.With(perm("system:menu:edit")).Post("/update", s.updateMenu)
		r.With(perm("system:menu:delete")).Delete("/delete", s.deleteMenu)
	})

	r.Route("/dict", func(r chi.Router) {
		r.With(perm("system:dict:list")).Get("/list", s.listDictTypes)
		r.With(perm("system:dict:create")).Post("/create", s.createDictType)
		r.With(perm("system:dict:edit")).Post("/update", s.updateDictType)
		r.With(perm("system:dict:delete")).Delete("/delete/{publicId}", s.deleteDictType)

		// Dictionary entries feed form options, so any signed-in user may read them.
		r.Get("/data/list", s.listDictData)
		r.With(perm("system:dict:create")).Post("/data/create", s.createDictData)
		r.With(perm("system:dict:edit")).Post("/data/update", s.updateDictData)
		r.With(perm("system:dict:delete")).Delete("/data/delete/{publicId}", s.deleteDictData)
	})
}

/*
====================================
USERS
*/

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := s.dir.ListUsers(r.Context(), UserFilter{
		Account: strings.TrimSpace(q.Get("account")),
		Sex:     q.Get("sex"),
		Status:  q["status"],
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, users)
}

func (s *Server) checkUserAccount(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	if account == "" {
		writeBusiness(w, http.StatusBadRequest, "account is required")
		return
	}
	taken, err := s.dir.AccountExists(r.Context(), account)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, map[string]bool{"available": !taken})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in console.User
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Account) == "" {
		writeBusiness(w, http.StatusBadRequest, "account is required")
		return
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		writeBusiness(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.unavailable(w, "hash password", err)
		return
	}
	created, err := s.dir.CreateUser(r.Context(), in, hash)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, created)
}

// updateUser ignores any password in the body; disabling a user revokes
// every session.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var in console.User
	if !decodeBody(w, r, &in) {
		return
	}
	if in.PublicID == "" {
		writeBusiness(w, http.StatusBadRequest, "publicId is required")
		return
	}
	if err := s.dir.UpdateUser(r.Context(), in); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if in.Status == "0" {
		s.revokeUser(r, in.PublicID)
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PublicID string `json:"publicId"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		writeBusiness(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.unavailable(w, "hash password", err)
		return
	}
	if err := s.dir.SetPassword(r.Context(), in.PublicID, hash); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.revokeUser(r, in.PublicID)
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "publicId")
	if err := s.dir.DeleteUser(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.revokeUser(r, id)
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) deleteUsersByAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := r.URL.Query()["accounts"]
	if len(accounts) == 0 {
		writeBusiness(w, http.StatusBadRequest, "accounts is required")
		return
	}
	var ids []string
	for _, a := range accounts {
		if u, err := s.dir.UserByAccount(r.Context(), a); err == nil {
			ids = append(ids, u.PublicID)
		}
	}
	n, err := s.dir.DeleteUsersByAccounts(r.Context(), accounts)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	for _, id := range ids {
		s.revokeUser(r, id)
	}
	middleware.WriteData(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) revokeUser(r *http.Request, publicID string) {
	if err := s.sessions.DeleteAllForUser(r.Context(), publicID); err != nil {
		s.logger.Warn("revoke sessions", "user", publicID, "error", err)
	}
}

/*
====================================
ROLES
*/

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.dir.ListRoles(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, roles)
}

func validPerms(perms []string) error {
	for _, p := range perms {
		if p == permission.All {
			continue
		}
		if err := permission.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var in console.Role
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.RoleKey) == "" || strings.TrimSpace(in.Name) == "" {
		writeBusiness(w, http.StatusBadRequest, "name and roleKey are required")
		return
	}
	if err := validPerms(in.Perms); err != nil {
		writeBusiness(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.dir.CreateRole(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.afterRoleChange(w, r, created)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	var in console.Role
	if !decodeBody(w, r, &in) {
		return
	}
	if err := validPerms(in.Perms); err != nil {
		writeBusiness(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.dir.UpdateRole(r.Context(), in); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.afterRoleChange(w, r, nil)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.DeleteRole(r.Context(), chi.URLParam(r, "publicId")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.afterRoleChange(w, r, nil)
}

func (s *Server) afterRoleChange(w http.ResponseWriter, r *http.Request, data any) {
	if err := s.ReloadRoles(r.Context()); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, data)
}

/*
====================================
DEPTS / MENUS
*/

func (s *Server) listDepts(w http.ResponseWriter, r *http.Request) {
	depts, err := s.dir.ListDepts(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, depts)
}

func (s *Server) createDept(w http.ResponseWriter, r *http.Request) {
	var in console.DeptNode
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeBusiness(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := s.dir.CreateDept(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, created)
}

func (s *Server) updateDept(w http.ResponseWriter, r *http.Request) {
	var in console.DeptNode
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.dir.UpdateDept(r.Context(), in); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) deleteDept(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.DeleteDept(r.Context(), r.URL.Query().Get("publicId")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) listMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.dir.ListMenus(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, menus)
}

func (s *Server) createMenu(w http.ResponseWriter, r *http.Request) {
	var in console.MenuNode
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeBusiness(w, http.StatusBadRequest, "name is required")
		return
	}
	switch in.MenuType {
	case "", console.MenuDirectory, console.MenuPage, console.MenuButton:
	default:
		writeBusiness(w, http.StatusBadRequest, "menuType must be M, C or F")
		return
	}
	created, err := s.dir.CreateMenu(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, created)
}

func (s *Server) updateMenu(w http.ResponseWriter, r *http.Request) {
	var in console.MenuNode
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.dir.UpdateMenu(r.Context(), in); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) deleteMenu(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.DeleteMenu(r.Context(), r.URL.Query().Get("publicId")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

/*
====================================
DICTIONARIES
*/

func (s *Server) listDictTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.dir.ListDictTypes(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, types)
}

func (s *Server) createDictType(w http.ResponseWriter, r *http.Request) {
	var in console.DictType
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Type) == "" {
		writeBusiness(w, http.StatusBadRequest, "type is required")
		return
	}
	created, err := s.dir.CreateDictType(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, created)
}

func (s *Server) updateDictType(w http.ResponseWriter, r *http.Request) {
	var in console.DictType
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.dir.UpdateDictType(r.Context(), in); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) deleteDictType(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.DeleteDictType(r.Context(), chi.URLParam(r, "publicId")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) listDictData(w http.ResponseWriter, r *http.Request) {
	data, err := s.dir.ListDictData(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, data)
}

func (s *Server) createDictData(w http.ResponseWriter, r *http.Request) {
	var in console.DictData
	if !decodeBody(w, r, &in) {
		return
	}
	if in.DictType == "" || in.Value == "" {
		writeBusiness(w, http.StatusBadRequest, "dictType and value are required")
		return
	}
	created, err := s.dir.CreateDictData(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, created)
}

func (s *Server) updateDictData(w http.ResponseWriter, r *http.Request) {
	var in console.DictData
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.dir.UpdateDictData(r.Context(), in); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) deleteDictData(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.DeleteDictData(r.Context(), chi.URLParam(r, "publicId")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, nil)
}
