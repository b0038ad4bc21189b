// Package auth holds the session gate consulted before any protected
// operation. The policy is deliberately permissive: with the authenticated
// flag set but no stored token, a fallback token is substituted so the UI
// stays usable while the backend is degraded.
package auth

import (
	"errors"

	"github.com/deskline/deskline/internal/bus"
	"github.com/deskline/deskline/internal/common"
	"github.com/deskline/deskline/internal/store"
)

// FallbackToken is substituted when the flag is set but no token survives.
const FallbackToken = "guest-session-token"

type Gate struct {
	st *store.Store
	bs *bus.Bus
}

func NewGate(st *store.Store, bs *bus.Bus) *Gate {
	return &Gate{st: st, bs: bs}
}

// IsAuthenticated reports whether the local session is considered live.
// A set flag counts even without a token because Token substitutes the
// fallback.
func (g *Gate) IsAuthenticated() bool {
	v, err := g.st.Get(store.KeyIsAuthenticated)
	return err == nil && v == "true"
}

// Token returns the access token to attach to calls. Empty when no session.
func (g *Gate) Token() string {
	if !g.IsAuthenticated() {
		return ""
	}
	tok, err := g.st.Get(store.KeyAuthToken)
	if err != nil || tok == "" {
		return FallbackToken
	}
	return tok
}

// User returns the stored profile, if any.
func (g *Gate) User() (common.User, bool) {
	var u common.User
	if err := g.st.GetJSON(store.KeyUserData, &u); err != nil {
		return common.User{}, false
	}
	return u, true
}

// Establish persists a fresh session and broadcasts the change.
func (g *Gate) Establish(u common.User) error {
	err := errors.Join(
		g.st.Set(store.KeyIsAuthenticated, "true"),
		g.st.Set(store.KeyAuthToken, u.Token),
		g.st.SetJSON(store.KeyUserData, u),
	)
	g.bs.Publish(bus.AuthChange)
	g.bs.Publish(bus.UserDataUpdated)
	return err
}

// Clear drops the flag, token, and cached profile, then broadcasts so
// mounted components react without a reload.
func (g *Gate) Clear() error {
	err := errors.Join(
		g.st.Delete(store.KeyIsAuthenticated),
		g.st.Delete(store.KeyAuthToken),
		g.st.Delete(store.KeyUserData),
	)
	g.bs.Publish(bus.AuthChange)
	return err
}
