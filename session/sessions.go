package session

import (
	"context"
	"docflow/authority"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Session struct {
	Token    string                `json:"token"`
	Identity Identity              `json:"identity"`
	Perms    authority.Permissions `json:"perms"`

	SigningTime time.Time       `json:"-"`
	Context     context.Context `json:"-"`
}

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Email    string   `json:"email"`
}

func (i Identity) DisplayName() string {
	if i.Nickname != "" {
		return i.Nickname
	}
	return i.Name
}

func (s *Session) Clone() Session {
	c := *s
	if s.Perms != nil {
		c.Perms = make(authority.Permissions, len(s.Perms))
		copy(c.Perms, s.Perms)
	}
	return c
}

func (s *Session) Principal() authority.Principal {
	return authority.Principal{ID: s.Identity.ID, Name: s.Identity.DisplayName(), Perms: s.Perms}
}

// Ctx never returns nil, sessions built outside a request fall back to background.
func (s *Session) Ctx() context.Context {
	if s == nil || s.Context == nil {
		return context.Background()
	}
	return s.Context
}

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}
