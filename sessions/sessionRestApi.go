package sessions

import (
	"docflow/account"
	"docflow/bizerror"
	"docflow/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func RegisterSessionHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)
	g.GET("", DetailSessionSecurityContext)
}

// DetailSessionSecurityContext reloads the roles of the current session, keeping its expiry.
func DetailSessionSecurityContext(c *gin.Context) {
	sec := session.ExtractSessionFromGinContext(c)

	now := time.Now()
	ttl := session.TokenExpiration - now.Sub(sec.SigningTime)
	if ttl > 0 {
		perms := account.LoadPermFunc(c.Request.Context(), sec.Identity.ID)
		securityContext := session.Session{Token: sec.Token, Identity: sec.Identity, Perms: perms, SigningTime: sec.SigningTime}
		session.TokenCache.Set(sec.Token, &securityContext, ttl)
		c.JSON(http.StatusOK, &securityContext)
	} else {
		panic(bizerror.ErrUnauthenticated)
	}
}
