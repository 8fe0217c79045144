package flows

// Deps groups flow dependency sets. The root Client builds the static parts
// once and fills per-call closures when delegating.
type Deps struct {
	Request RequestDeps
	Refresh RefreshDeps
	Login   LoginDeps
	Logout  LogoutDeps
}
