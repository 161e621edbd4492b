package web

import (
	"net/http"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/service"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/view"
	"github.com/xcono/parkrest/web/auth"
	"github.com/xcono/parkrest/web/handlers"
	"github.com/xcono/parkrest/web/response"
	"github.com/zeromicro/go-zero/core/logx"
)

// StartServer opens the database and serves the API until the listener
// fails. Routes:
//
//	POST /auth/register        - create an account, returns a token
//	POST /auth/login           - exchange credentials for a token
//	GET  /api/{plural}         - list records (page, limit, search)
//	POST /api/{plural}         - create a record
//	POST /api/{plural}/bulk    - create many records transactionally
//	GET  /api/{plural}/fields  - entity presentation metadata
//	GET  /api/{plural}/{id}    - fetch one record
//	PUT  /api/{plural}/{id}    - partially update one record
//	DELETE /api/{plural}/{id}  - delete one record
//	GET  /ui/{plural}          - server-rendered table view
//	GET  /ui/{plural}/form     - server-rendered create form
//	GET  /healthz              - liveness probe
func StartServer(c schema.Config, registry *schema.Registry) error {
	db, err := schema.OpenDB(c.DSN)
	if err != nil {
		return goerr.Wrap(err, "failed to open database", goerr.V("dsn", c.DSN))
	}
	defer db.Close()

	exec := store.NewExecutor(db)
	flavor := store.FlavorForDSN(c.DSN)
	factory := service.NewFactory(registry, exec, flavor)
	issuer := auth.NewTokenIssuer(c.Auth.Secret, time.Duration(c.Auth.TokenTTLMinutes)*time.Minute)

	mux := NewMux(factory, exec, flavor, issuer)

	logx.Infow("starting server",
		logx.Field("name", c.Name), logx.Field("listen", c.Listen))
	return http.ListenAndServe(c.Listen, mux)
}

// NewMux wires every route onto a fresh mux. Split from StartServer so
// tests can drive the full routing table without a listener.
func NewMux(factory *service.Factory, exec *store.Executor, flavor sqlbuilder.Flavor, issuer *auth.TokenIssuer) http.Handler {
	router := handlers.NewRouter(factory)
	authHandler := auth.NewHandler(exec, flavor, issuer)
	uiHandler := view.NewHandler(factory, view.NewRenderer())

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", authHandler.Register)
	mux.HandleFunc("/auth/login", authHandler.Login)
	mux.Handle("/api/", auth.Middleware(issuer, http.HandlerFunc(router.HandleEntity)))
	mux.Handle("/ui/", auth.Middleware(issuer, uiHandler))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.WriteMessage(w, http.StatusOK, "ok")
	})

	return withCORS(mux)
}

// withCORS sets permissive CORS headers and answers preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
