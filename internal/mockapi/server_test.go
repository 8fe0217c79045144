package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/console"
	"github.com/MrEthical07/consoleauth/jwt"
	"github.com/MrEthical07/consoleauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	srv   *Server
	ts    *httptest.Server
	clock *testClock
	acc   SeedAccounts
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dir, err := OpenDirectory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	clock := &testClock{now: time.Now()}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "console-test",
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Password = password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	for _, fn := range mutate {
		fn(&cfg)
	}

	ctx := context.Background()
	srv, err := New(ctx, cfg, Deps{Directory: dir, Redis: rdb, Tokens: tokens})
	require.NoError(t, err)
	acc := DefaultSeedAccounts()
	require.NoError(t, srv.Seed(ctx, acc))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &harness{srv: srv, ts: ts, clock: clock, acc: acc}
}

func (h *harness) client(t *testing.T, configure ...func(*consoleauth.Builder)) *consoleauth.Client {
	t.Helper()
	b := consoleauth.New().WithBaseURL(h.ts.URL + "/api")
	for _, fn := range configure {
		fn(b)
	}
	c, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func (h *harness) login(t *testing.T, account, pw string, configure ...func(*consoleauth.Builder)) (*consoleauth.Client, *console.API) {
	t.Helper()
	c := h.client(t, configure...)
	require.NoError(t, c.Login(context.Background(), account, pw))
	return c, console.New(c)
}

func (h *harness) admin(t *testing.T) (*consoleauth.Client, *console.API) {
	return h.login(t, h.acc.AdminAccount, h.acc.AdminPassword)
}

func (h *harness) rawLogin(t *testing.T, account, pw string) (string, *http.Cookie) {
	t.Helper()
	body, _ := json.Marshal(loginBody{Account: account, Password: pw})
	resp, err := http.Post(h.ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env struct {
		Data tokenData `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Data.AccessToken, refreshCookie(resp)
}

func (h *harness) rawRefresh(t *testing.T, cookie *http.Cookie) (*http.Response, *http.Cookie) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.ts.URL+"/api/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, refreshCookie(resp)
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var rerr *consoleauth.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, status, rerr.Status)
}

func requireBusiness(t *testing.T, err error, code int) {
	t.Helper()
	var berr *console.BusinessError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, code, berr.Code)
}

func TestLoginSetsHttpOnlyRefreshCookie(t *testing.T) {
	h := newHarness(t)
	token, cookie := h.rawLogin(t, h.acc.AdminAccount, h.acc.AdminPassword)

	require.NotEmpty(t, token)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int64(1), h.srv.Faults().Stats().LoginCalls)
}

func TestAdminSeesEverything(t *testing.T) {
	h := newHarness(t)
	_, api := h.admin(t)
	ctx := context.Background()

	info, err := api.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.acc.AdminAccount, info.User.Account)
	assert.Empty(t, info.User.Password)
	assert.Equal(t, []string{"admin"}, info.Roles)
	assert.True(t, info.HasPerm("system:menu:delete"))

	bar, err := api.SideBar(ctx)
	require.NoError(t, err)
	urls := console.FlattenSideBar(bar)
	assert.Contains(t, urls, "/system/user")
	assert.Contains(t, urls, "/system/menu")
	assert.Contains(t, urls, "https://example.com/docs")

	routers, err := api.Routers(ctx)
	require.NoError(t, err)
	require.Len(t, routers, 3)
	assert.Equal(t, "System", routers[1].Name)
	assert.Nil(t, routers[1].Component)
	assert.Len(t, routers[1].Children, 5)
	for _, child := range routers[1].Children {
		assert.NotEqual(t, console.MenuButton, child.MenuType)
	}
}

func TestViewerNavigationAndPermissionsAreFiltered(t *testing.T) {
	h := newHarness(t)
	_, api := h.login(t, h.acc.ViewerAccount, h.acc.ViewerPassword)
	ctx := context.Background()

	routers, err := api.Routers(ctx)
	require.NoError(t, err)
	var names []string
	for _, r := range routers[1].Children {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Users", "Departments", "Dictionaries"}, names)

	users, err := api.Users().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = api.Roles().List(ctx, nil)
	requireStatus(t, err, http.StatusForbidden)
	assert.ErrorIs(t, err, consoleauth.ErrHTTPStatus)
}

func TestExpiredAccessTokenIsRefreshedOnceForConcurrentCalls(t *testing.T) {
	h := newHarness(t)
	c, api := h.admin(t)
	before := c.Token()

	h.clock.Advance(2 * time.Minute)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := api.Info(context.Background())
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), h.srv.Faults().RefreshCalls())
	assert.NotEqual(t, before, c.Token())
}

func TestInjectedUnauthorizedIsRecovered(t *testing.T) {
	h := newHarness(t)
	c, api := h.admin(t)
	h.srv.Faults().ForceUnauthorized(1)

	_, err := api.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.srv.Faults().RefreshCalls())
	assert.Equal(t, uint64(1), c.MetricsSnapshot().Counters[consoleauth.MetricReplay])
}

func TestFailedRefreshEndsTheSession(t *testing.T) {
	h := newHarness(t)
	var expired atomic.Int32
	c, api := h.login(t, h.acc.AdminAccount, h.acc.AdminPassword, func(b *consoleauth.Builder) {
		b.WithAuthExpiredHandler(func(error) { expired.Add(1) })
	})
	h.srv.Faults().Apply(FaultSettings{Unauthorized: 1, RefreshFailures: 1})

	_, err := api.Info(context.Background())
	require.ErrorIs(t, err, consoleauth.ErrSessionExpired)
	assert.False(t, c.HasToken())
	assert.Equal(t, int32(1), expired.Load())
}

func TestSlowRefreshIsSharedByWaiters(t *testing.T) {
	h := newHarness(t)
	c, api := h.admin(t)
	h.srv.Faults().DelayRefresh(100 * time.Millisecond)
	h.clock.Advance(2 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := api.SideBar(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), h.srv.Faults().RefreshCalls())
	assert.True(t, c.HasToken())
}

func TestRestoreResumesSessionFromCookie(t *testing.T) {
	h := newHarness(t)
	c, _ := h.admin(t)
	c.ClearToken()

	require.NoError(t, c.Restore(context.Background()))
	assert.True(t, c.HasToken())

	fresh := h.client(t)
	require.Error(t, fresh.Restore(context.Background()))
	assert.False(t, fresh.HasToken())
}

func TestRefreshRotatesCookieAndDetectsReuse(t *testing.T) {
	h := newHarness(t)
	_, first := h.rawLogin(t, h.acc.AdminAccount, h.acc.AdminPassword)

	resp, second := h.rawRefresh(t, first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	resp, _ = h.rawRefresh(t, first)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// reuse revoked the whole session
	resp, _ = h.rawRefresh(t, second)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRejectsGarbageCookie(t *testing.T) {
	h := newHarness(t)
	resp, cleared := h.rawRefresh(t, &http.Cookie{Name: "refresh_token", Value: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newHarness(t)
	c, _ := h.admin(t)
	token := c.Token()

	require.NoError(t, c.Logout(context.Background()))
	assert.False(t, c.HasToken())

	req, err := http.NewRequest(http.MethodGet, h.ts.URL+"/api/getInfo", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Error(t, c.Restore(context.Background()))
}

func TestJWTOnlyModeIgnoresRevokedSessions(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.StrictSessions = false })
	c, api := h.admin(t)
	token := c.Token()
	require.NoError(t, c.Logout(context.Background()))

	c.SetToken(token)
	_, err := api.Info(context.Background())
	assert.NoError(t, err)
}

func TestLoginFailuresAreRateLimited(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.Rate.MaxLoginAttempts = 2 })
	c := h.client(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := c.Login(ctx, h.acc.AdminAccount, "wrong")
		require.ErrorIs(t, err, consoleauth.ErrLoginFailed)
		requireStatus(t, err, http.StatusUnauthorized)
	}
	err := c.Login(ctx, h.acc.AdminAccount, h.acc.AdminPassword)
	requireStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, int64(0), h.srv.Faults().RefreshCalls())
}

func TestDisabledAccountCannotLogin(t *testing.T) {
	h := newHarness(t)
	err := h.client(t).Login(context.Background(), h.acc.DisabledAccount, h.acc.ViewerPassword)
	requireStatus(t, err, http.StatusForbidden)
}

func TestRegisterValidatesAndAssignsDefaultRole(t *testing.T) {
	h := newHarness(t)
	api := console.New(h.client(t))
	ctx := context.Background()

	err := api.Register(ctx, console.RegisterInput{Account: "carol", Password: "short"})
	requireBusiness(t, err, http.StatusBadRequest)

	require.NoError(t, api.Register(ctx, console.RegisterInput{Account: "carol", Password: "Carol#2024"}))

	err = api.Register(ctx, console.RegisterInput{Account: "carol", Password: "Carol#2024"})
	requireBusiness(t, err, http.StatusConflict)

	_, carol := h.login(t, "carol", "Carol#2024")
	info, err := carol.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer"}, info.Roles)
	assert.Equal(t, "carol", info.User.Name)
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t)
	_, api := h.admin(t)
	users := api.Users()
	ctx := context.Background()

	available, err := users.CheckAccount(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, available)

	require.NoError(t, users.Create(ctx, console.User{Account: "dave", Name: "Dave", Password: "Dave!2024", Sex: "1"}))

	available, err = users.CheckAccount(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, available)

	err = users.Create(ctx, console.User{Account: "dave", Password: "Dave!2024"})
	requireBusiness(t, err, http.StatusConflict)

	found, err := users.List(ctx, map[string][]string{"account": {"dav"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	dave := found[0]
	assert.Equal(t, "1", dave.Status)

	require.NoError(t, users.Update(ctx, console.User{PublicID: dave.PublicID, Email: "dave@example.com"}))
	require.NoError(t, users.ResetPassword(ctx, dave.PublicID, "Dave?2025"))
	_, _ = h.login(t, "dave", "Dave?2025")

	require.NoError(t, users.SetStatus(ctx, dave.PublicID, false))
	found, err = users.List(ctx, map[string][]string{"status": {"0"}})
	require.NoError(t, err)
	var accounts []string
	for _, u := range found {
		accounts = append(accounts, u.Account)
		if u.Account == "dave" {
			assert.Equal(t, "dave@example.com", u.Email)
		}
	}
	assert.ElementsMatch(t, []string{"dave", "disabled"}, accounts)

	require.NoError(t, users.DeleteByAccounts(ctx, "dave", "disabled"))
	requireBusiness(t, users.Delete(ctx, dave.PublicID), http.StatusNotFound)
}

func TestDisablingUserEndsTheirSession(t *testing.T) {
	h := newHarness(t)
	_, admin := h.admin(t)
	viewerClient, viewer := h.login(t, h.acc.ViewerAccount, h.acc.ViewerPassword)
	ctx := context.Background()

	found, err := admin.Users().List(ctx, map[string][]string{"account": {h.acc.ViewerAccount}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, admin.Users().SetStatus(ctx, found[0].PublicID, false))

	_, err = viewer.Info(ctx)
	require.ErrorIs(t, err, consoleauth.ErrSessionExpired)
	assert.False(t, viewerClient.HasToken())
}

func TestRoleChangesApplyImmediately(t *testing.T) {
	h := newHarness(t)
	_, admin := h.admin(t)
	_, viewer := h.login(t, h.acc.ViewerAccount, h.acc.ViewerPassword)
	ctx := context.Background()

	_, err := viewer.Roles().List(ctx, nil)
	requireStatus(t, err, http.StatusForbidden)

	roles, err := admin.Roles().List(ctx, nil)
	require.NoError(t, err)
	var viewerRole console.Role
	for _, r := range roles {
		if r.RoleKey == "viewer" {
			viewerRole = r
		}
	}
	require.NotEmpty(t, viewerRole.PublicID)

	err = admin.Roles().Update(ctx, console.Role{PublicID: viewerRole.PublicID, Perms: []string{"not-a-perm"}})
	requireBusiness(t, err, http.StatusBadRequest)

	perms := append(viewerRole.Perms, "system:role:list")
	require.NoError(t, admin.Roles().Update(ctx, console.Role{PublicID: viewerRole.PublicID, Perms: perms}))

	_, err = viewer.Roles().List(ctx, nil)
	assert.NoError(t, err)
}

func TestDeptAndMenuTrees(t *testing.T) {
	h := newHarness(t)
	_, api := h.admin(t)
	ctx := context.Background()

	depts, err := api.Depts().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, depts, 1)
	head := depts[0]
	assert.Equal(t, "Administrator", head.LeaderName)
	assert.Len(t, head.Children, 2)

	requireBusiness(t, api.Depts().Delete(ctx, head.PublicID), http.StatusConflict)
	require.NoError(t, api.Depts().Delete(ctx, head.Children[0].PublicID))

	menus, err := api.Menus().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, menus, 3)
	system := menus[1]
	count := 0
	console.WalkMenus([]console.MenuNode{system}, func(console.MenuNode) bool { count++; return true })
	assert.Greater(t, count, 10)

	require.NoError(t, api.Menus().Delete(ctx, system.PublicID))
	menus, err = api.Menus().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, menus, 2)

	routers, err := api.Routers(ctx)
	require.NoError(t, err)
	assert.Len(t, routers, 2)
}

func TestDictionaries(t *testing.T) {
	h := newHarness(t)
	_, api := h.admin(t)
	ctx := context.Background()

	opts, err := api.DictOptions(ctx, "sys_user_sex")
	require.NoError(t, err)
	assert.Equal(t, []console.DictOption{
		{Label: "Male", Value: "1"},
		{Label: "Female", Value: "2"},
		{Label: "Unknown", Value: "0"},
	}, opts)

	types, err := api.DictTypes().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, types, 2)
	require.NoError(t, api.DictTypes().Update(ctx, console.DictType{PublicID: types[0].PublicID, Type: "user_sex"}))

	data, err := api.DictDataByType(ctx, "user_sex")
	require.NoError(t, err)
	assert.Len(t, data, 3)

	require.NoError(t, api.DictData().SetStatus(ctx, data[0].PublicID, false))
	opts, err = api.DictOptions(ctx, "user_sex")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	require.NoError(t, api.DictTypes().Delete(ctx, types[0].PublicID))
	data, err = api.DictDataByType(ctx, "user_sex")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDevEndpoints(t *testing.T) {
	h := newHarness(t)

	body, _ := json.Marshal(FaultSettings{RefreshFailures: 2, RefreshDelayMS: 5})
	resp, err := http.Post(h.ts.URL+"/__dev/faults", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, FaultSettings{RefreshFailures: 2, RefreshDelayMS: 5}, h.srv.Faults().Settings())

	resp, err = http.Post(h.ts.URL+"/__dev/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, FaultSettings{}, h.srv.Faults().Settings())

	resp, err = http.Get(h.ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDevEndpointsCanBeDisabled(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.EnableDevEndpoints = false })
	resp, err := http.Get(h.ts.URL + "/__dev/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"prefix":       func(c *Config) { c.Prefix = "api/" },
		"session ttl":  func(c *Config) { c.SessionTTL = 0 },
		"cookie":       func(c *Config) { c.CookieName = " " },
		"login status": func(c *Config) { c.LoginStatus = http.StatusFound },
		"body limit":   func(c *Config) { c.MaxBodyBytes = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestFaultsRefreshDelayHonoursContext(t *testing.T) {
	var f Faults
	f.DelayRefresh(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.enterRefresh(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int64(1), f.RefreshCalls())
}
