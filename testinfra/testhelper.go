package testinfra

import (
	"context"
	"docflow/authority"
	"docflow/session"
	"io/ioutil"
	"net/http"
	"net/http/httptest"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

func ExecuteRequest(req *http.Request, engine *gin.Engine) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := ioutil.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, string(body), resp
}

// BuildSession build a session with the given identity and roles
func BuildSession(uid types.ID, name string, roles ...string) *session.Session {
	return &session.Session{
		Token:    "token-" + uid.String(),
		Identity: session.Identity{ID: uid, Name: name},
		Perms:    authority.Permissions(roles),
		Context:  context.Background(),
	}
}

// InjectSession returns a middleware acting as an authenticated identity provider in rest tests.
func InjectSession(s *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.InjectSessionIntoGinContext(c, s)
		c.Next()
	}
}
