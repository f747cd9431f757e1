package core

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"

	"kb/upload"
)

// CoreDB aggregates the stores and the request-independent service state.
type CoreDB struct {
	UserStore
	CategoryStore
	ArticleStore
	GrantStore
	FileStore
	TagStore

	SessionManager *scs.SessionManager
	Uploads        upload.Store
	Log            zerolog.Logger

	SqlDB *sql.DB // exported because main owns opening and closing it
}

func (c *CoreDB) Init(sessionStore scs.Store, log zerolog.Logger) {

	c.Log = log

	c.SessionManager = scs.New()
	c.SessionManager.Store = sessionStore
	c.SessionManager.Cookie.Persist = false                 // don't store the cookie across browser sessions
	c.SessionManager.Cookie.SameSite = http.SameSiteLaxMode // good CSRF protection for a same-origin JSON client
	c.SessionManager.Cookie.Secure = false                  // else running on localhost or behind a http proxy fails
	c.SessionManager.IdleTimeout = 12 * time.Hour
	c.SessionManager.Lifetime = 720 * time.Hour
}
