package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MrEthical07/consoleauth"
)

// ErrBusiness is matched by every *BusinessError.
var ErrBusiness = errors.New("business error")

// BusinessError is a 2xx reply whose envelope code reports a failure.
type BusinessError struct {
	Path    string
	Code    int
	Message string
}

func (e *BusinessError) Error() string {
	return e.Path + ": code " + strconv.Itoa(e.Code) + ": " + e.Message
}

func (e *BusinessError) Unwrap() error { return ErrBusiness }

// Doer sends one request. *consoleauth.Client implements it.
type Doer interface {
	Do(ctx context.Context, req consoleauth.Request) (*consoleauth.Response, error)
}

// API issues console calls through a Doer.
type API struct {
	c Doer
}

// New returns an API backed by c.
func New(c Doer) *API {
	return &API{c: c}
}

// Info returns the signed-in user's profile, roles and permissions.
func (a *API) Info(ctx context.Context) (UserInfo, error) {
	var out UserInfo
	err := a.get(ctx, "/getInfo", nil, &out)
	return out, err
}

// Routers returns the route tree the user may open.
func (a *API) Routers(ctx context.Context) ([]RouterItem, error) {
	var out []RouterItem
	err := a.get(ctx, "/getRouters", nil, &out)
	return out, err
}

// SideBar returns the navigation tree.
func (a *API) SideBar(ctx context.Context) ([]SideBarItem, error) {
	var out []SideBarItem
	err := a.get(ctx, "/getSideBarMenus", nil, &out)
	return out, err
}

// Register creates an account. It does not sign in.
func (a *API) Register(ctx context.Context, in RegisterInput) error {
	return a.post(ctx, "/auth/register", in, nil)
}

// Users returns the user resource.
func (a *API) Users() *UserResource {
	return &UserResource{Resource: Resource[User]{api: a, base: "/system/user", delete: deleteByPath}}
}

// Roles returns the role resource.
func (a *API) Roles() Resource[Role] {
	return Resource[Role]{api: a, base: "/system/role", delete: deleteByPath}
}

// Depts returns the department resource. List yields the tree roots.
func (a *API) Depts() Resource[DeptNode] {
	return Resource[DeptNode]{api: a, base: "/system/dept", delete: deleteByQuery}
}

// Menus returns the menu resource. List yields the tree roots.
func (a *API) Menus() Resource[MenuNode] {
	return Resource[MenuNode]{api: a, base: "/system/menu", delete: deleteByQuery}
}

// DictTypes returns the dictionary type resource.
func (a *API) DictTypes() Resource[DictType] {
	return Resource[DictType]{api: a, base: "/system/dict", delete: deleteByPath}
}

// DictData returns the dictionary entry resource.
func (a *API) DictData() Resource[DictData] {
	return Resource[DictData]{api: a, base: "/system/dict/data", delete: deleteByPath}
}

// DictDataByType returns the entries of the dictionary named dictType.
func (a *API) DictDataByType(ctx context.Context, dictType string) ([]DictData, error) {
	return a.DictData().List(ctx, url.Values{"type": {dictType}})
}

// DictOptions loads a dictionary and converts it with DictDataToOptions,
// keeping enabled entries only.
func (a *API) DictOptions(ctx context.Context, dictType string) ([]DictOption, error) {
	data, err := a.DictDataByType(ctx, dictType)
	if err != nil {
		return nil, err
	}
	return DictDataToOptions(data, true), nil
}

func (a *API) get(ctx context.Context, path string, query url.Values, out any) error {
	return a.do(ctx, consoleauth.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (a *API) post(ctx context.Context, path string, body any, out any) error {
	req, err := consoleauth.NewJSONRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return a.do(ctx, req, out)
}

func (a *API) do(ctx context.Context, req consoleauth.Request, out any) error {
	resp, err := a.c.Do(ctx, req)
	if err != nil {
		return err
	}
	env, err := resp.Envelope()
	if err != nil {
		return fmt.Errorf("%s: %w", req.Path, err)
	}
	if !successCode(env.Code) {
		return &BusinessError{Path: req.Path, Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", req.Path, err)
	}
	return nil
}

// successCode accepts a missing code and any 2xx-style code.
func successCode(code int) bool {
	return code == 0 || (code >= 200 && code < 300)
}
