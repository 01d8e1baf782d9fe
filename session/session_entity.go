package session

import (
	"context"
	"openpka/authority"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Session struct {
	Context context.Context `json:"-"`

	Token    string                `json:"token"`
	Identity Identity              `json:"identity"`
	Perms    authority.Permissions `json:"perms"`

	RequestID   string            `json:"-"`
	RequestMeta map[string]string `json:"-"`

	SigningTime time.Time `json:"-"`
}

type Identity struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

func (s *Session) Clone() Session {
	c := *s
	if s.Perms != nil {
		c.Perms = append(authority.Permissions{}, s.Perms...)
	}
	if s.RequestMeta != nil {
		c.RequestMeta = map[string]string{}
		for k, v := range s.RequestMeta {
			c.RequestMeta[k] = v
		}
	}
	return c
}

func (s *Session) HasPerm(perm string) bool {
	return s != nil && s.Perms.HasPerm(perm)
}
