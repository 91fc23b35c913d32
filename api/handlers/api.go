package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adhivakta/adhivakta-api/access"
	"github.com/adhivakta/adhivakta-api/api"
	"github.com/adhivakta/adhivakta-api/api/scheduler"
	"github.com/adhivakta/adhivakta-api/casenumber"
	"github.com/adhivakta/adhivakta-api/config"
	"github.com/adhivakta/adhivakta-api/databases"
	"github.com/adhivakta/adhivakta-api/docaccess"
	"github.com/adhivakta/adhivakta-api/identity"
	"github.com/adhivakta/adhivakta-api/lifecycle"
	"github.com/adhivakta/adhivakta-api/models"
	"github.com/adhivakta/adhivakta-api/notify"
	"github.com/adhivakta/adhivakta-api/storage"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	dbHelper  databases.DatabaseHelper
	store     storage.Storage
	hub       *notify.Hub
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	api.SetupGoGuardian()

	r := mux.NewRouter()

	udb := databases.NewUserDatabase(a.dbHelper)
	cdb := databases.NewCaseDatabase(a.dbHelper)
	ddb := databases.NewDocumentDatabase(a.dbHelper)
	ndb := databases.NewNotificationDatabase(a.dbHelper)
	counters := databases.NewCounterDatabase(a.dbHelper)

	evaluator := access.Evaluator{AllowAssociateCounsel: a.Config.AllowAssociateCounsel}
	manager := lifecycle.Manager{MaxClosingDate: a.Config.MaxClosingDate}
	dispatcher := notify.Dispatcher{
		DB:  ndb,
		UDB: udb,
		Mailer: notify.SendGridMailer{
			APIKey:   a.Config.SendgridAPIKey,
			From:     a.Config.EmailFrom,
			FromName: a.Config.EmailFromName,
		},
		Pusher: a.hub,
	}

	authn := Auth{
		UDB:      udb,
		Verifier: identity.JWTVerifier{Secret: []byte(a.Config.IDTokenSecret)},
		Resolver: identity.Resolver{UDB: udb},
	}
	c := Case{
		DB:        cdb,
		UDB:       udb,
		Access:    evaluator,
		Lifecycle: manager,
		Numbers:   casenumber.Generator{DB: counters, Prefix: a.Config.CaseNumberPrefix},
		ACL:       docaccess.Manager{DB: ddb},
		Notify:    dispatcher,
	}
	d := Document{
		DB:     ddb,
		CDB:    cdb,
		Access: evaluator,
		Store:  a.store,
		Notify: dispatcher,
	}
	n := Notification{DB: ndb, Dispatcher: dispatcher, Hub: a.hub}
	cl := Client{UDB: udb, CDB: cdb, Access: evaluator}
	cal := Calendar{DB: cdb, Access: evaluator}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/signup", http.HandlerFunc(authn.SignupHandler)).Methods("POST")
	apiCreate.Handle("/auth/login", http.HandlerFunc(authn.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/social", http.HandlerFunc(authn.SocialLoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/admin/login", http.HandlerFunc(authn.AdminLoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/profile", api.Middleware(http.HandlerFunc(authn.ProfileHandler))).Methods("GET")

	apiCreate.Handle("/cases", api.Middleware(http.HandlerFunc(c.CreateCaseHandler))).Methods("POST")
	apiCreate.Handle("/cases", api.Middleware(http.HandlerFunc(c.CasesHandler))).Methods("GET")
	apiCreate.Handle("/cases/stats", api.Middleware(http.HandlerFunc(c.CaseStatsHandler))).Methods("GET")
	apiCreate.Handle("/cases/hearings/upcoming", api.Middleware(http.HandlerFunc(c.UpcomingHearingsHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}", api.Middleware(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}", api.Middleware(http.HandlerFunc(c.UpdateCaseHandler))).Methods("PUT")
	apiCreate.Handle("/cases/{case_id}/timeline", api.Middleware(http.HandlerFunc(c.CaseTimelineHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}/hearings", api.Middleware(http.HandlerFunc(c.AddHearingHandler))).Methods("PATCH")

	apiCreate.Handle("/documents/upload", api.Middleware(http.HandlerFunc(d.UploadDocumentHandler))).Methods("POST")
	apiCreate.Handle("/documents/case/{case_id}", api.Middleware(http.HandlerFunc(d.DocumentsByCaseHandler))).Methods("GET")
	apiCreate.Handle("/documents/{document_id}", api.Middleware(http.HandlerFunc(d.DeleteDocumentHandler))).Methods("DELETE")

	apiCreate.Handle("/notifications", api.Middleware(http.HandlerFunc(n.NotificationsHandler))).Methods("GET")
	apiCreate.Handle("/notifications/{notification_id}/read", api.Middleware(http.HandlerFunc(n.MarkNotificationReadHandler))).Methods("PATCH")

	apiCreate.Handle("/calendar", api.Middleware(http.HandlerFunc(cal.CalendarHandler))).Methods("GET")

	apiCreate.Handle("/clients", api.Middleware(http.HandlerFunc(cl.CreateClientHandler))).Methods("POST")
	apiCreate.Handle("/clients/search", api.Middleware(http.HandlerFunc(cl.SearchClientsHandler))).Methods("GET")
	apiCreate.Handle("/clients/{client_id}", api.Middleware(http.HandlerFunc(cl.ClientByIDHandler))).Methods("GET")
	apiCreate.Handle("/clients/{client_id}", api.Middleware(http.HandlerFunc(cl.UpdateClientHandler))).Methods("PUT")
	apiCreate.Handle("/clients/{client_id}/cases", api.Middleware(http.HandlerFunc(cl.ClientCasesHandler))).Methods("GET")

	r.Handle("/ws/notifications", api.Middleware(http.HandlerFunc(n.NotificationsWebSocketHandler)))

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("adhivakta-api has connected to the database")

	store, err := storage.NewCloudinaryStorage(a.Config.CloudinaryURL)
	if err != nil {
		zap.S().With(err).Error("failed to init file storage")
		return err
	}
	a.store = store
	a.hub = notify.NewHub()

	// initialize api router
	a.initializeRoutes()

	a.startScheduler()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func (a *App) startScheduler() {
	udb := databases.NewUserDatabase(a.dbHelper)
	ndb := databases.NewNotificationDatabase(a.dbHelper)
	dispatcher := notify.Dispatcher{
		DB:  ndb,
		UDB: udb,
		Mailer: notify.SendGridMailer{
			APIKey:   a.Config.SendgridAPIKey,
			From:     a.Config.EmailFrom,
			FromName: a.Config.EmailFromName,
		},
		Pusher: a.hub,
	}
	a.scheduler = scheduler.NewScheduler(databases.NewCaseDatabase(a.dbHelper), dispatcher)
	a.scheduler.Start()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
