package mockapi

import (
	"net/http"

	"github.com/MrEthical07/consoleauth/console"
	"github.com/MrEthical07/consoleauth/middleware"
)

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	user, err := s.dir.UserByID(r.Context(), claims.UID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	roles, err := s.dir.RoleKeys(r.Context(), user.RolePublicIDs)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, console.UserInfo{
		User:        user.User,
		Roles:       roles,
		Permissions: s.Resolve(roles...).List(),
	})
}

func (s *Server) getRouters(w http.ResponseWriter, r *http.Request) {
	routers, _, err := s.navigation(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, routers)
}

func (s *Server) getSideBar(w http.ResponseWriter, r *http.Request) {
	_, bar, err := s.navigation(r)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	middleware.WriteData(w, http.StatusOK, bar)
}

func (s *Server) navigation(r *http.Request) ([]console.RouterItem, []console.SideBarItem, error) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	perms := s.Resolve(claims.Roles...)
	return s.dir.Navigation(r.Context(), perms.Has)
}
