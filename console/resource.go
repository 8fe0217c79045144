package console

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/consoleauth"
)

type deleteStyle int

const (
	// deleteByPath sends DELETE {base}/delete/{publicId}.
	deleteByPath deleteStyle = iota
	// deleteByQuery sends DELETE {base}/delete?publicId={publicId}.
	deleteByQuery
)

// Resource is a console collection exposing list, create, update and delete
// under a common base path.
type Resource[T any] struct {
	api    *API
	base   string
	delete deleteStyle
}

// Path returns the base path of the resource.
func (r Resource[T]) Path() string {
	return r.base
}

// List returns the rows matching query. A nil query lists everything.
func (r Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var out []T
	if err := r.api.get(ctx, r.base+"/list", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts item to {base}/create.
func (r Resource[T]) Create(ctx context.Context, item T) error {
	return r.api.post(ctx, r.base+"/create", item, nil)
}

// Update posts patch to {base}/update. patch is usually a T with only the
// changed fields and PublicID set.
func (r Resource[T]) Update(ctx context.Context, patch any) error {
	return r.api.post(ctx, r.base+"/update", patch, nil)
}

// SetStatus flips the "0"/"1" status of one row.
func (r Resource[T]) SetStatus(ctx context.Context, publicID string, enabled bool) error {
	status := "0"
	if enabled {
		status = "1"
	}
	return r.Update(ctx, map[string]string{"publicId": publicID, "status": status})
}

// Delete removes the row identified by publicID.
func (r Resource[T]) Delete(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return consoleauth.ErrInvalidRequest
	}
	req := consoleauth.Request{Method: http.MethodDelete}
	switch r.delete {
	case deleteByQuery:
		req.Path = r.base + "/delete"
		req.Query = url.Values{"publicId": {publicID}}
	default:
		req.Path = r.base + "/delete/" + url.PathEscape(publicID)
	}
	return r.api.do(ctx, req, nil)
}

// UserResource adds the user-only calls to Resource.
type UserResource struct {
	Resource[User]
}

type accountAvailability struct {
	Available bool `json:"available"`
}

// CheckAccount reports whether account is still free.
func (u *UserResource) CheckAccount(ctx context.Context, account string) (bool, error) {
	var out accountAvailability
	err := u.api.do(ctx, consoleauth.Request{
		Method:              http.MethodGet,
		Path:                u.base + "/checkUserAccount",
		Query:               url.Values{"account": {account}},
		SuppressErrorNotice: true,
	}, &out)
	return out.Available, err
}

// ResetPassword sets a new password for the user publicID.
func (u *UserResource) ResetPassword(ctx context.Context, publicID, password string) error {
	return u.api.post(ctx, u.base+"/reset-password", map[string]string{
		"publicId": publicID,
		"password": password,
	}, nil)
}

// DeleteByAccounts removes several users in one call.
func (u *UserResource) DeleteByAccounts(ctx context.Context, accounts ...string) error {
	if len(accounts) == 0 {
		return consoleauth.ErrInvalidRequest
	}
	return u.api.do(ctx, consoleauth.Request{
		Method: http.MethodDelete,
		Path:   u.base + "/delete-by-accounts",
		Query:  url.Values{"accounts": accounts},
	}, nil)
}
