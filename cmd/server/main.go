package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ftffxu/ephemeral-chatty/internal/auth"
	"github.com/Ftffxu/ephemeral-chatty/internal/chat"
	"github.com/Ftffxu/ephemeral-chatty/internal/email"
	"github.com/Ftffxu/ephemeral-chatty/internal/handlers"
	"github.com/Ftffxu/ephemeral-chatty/internal/keystore"
	"github.com/Ftffxu/ephemeral-chatty/internal/middleware"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage/sqlstorage"
	"github.com/Ftffxu/ephemeral-chatty/internal/ws"
)

var (
	addr         = flag.String("addr", ":8080", "http service address")
	driver       = flag.String("driver", "memory", "storage backend: memory, sqlite3 or postgres")
	dsn          = flag.String("dsn", "chatty.db", "data source name for sqlite3/postgres")
	latency      = flag.Duration("latency", 0, "artificial latency added to store operations")
	cookieSecret = flag.String("cookie-secret", "", "secret for session cookie signing")

	smtpHost = flag.String("smtp-host", "", "SMTP host for OTP delivery (empty = print codes to stdout)")
	smtpPort = flag.String("smtp-port", "587", "SMTP port")
	smtpUser = flag.String("smtp-user", "", "SMTP username")
	smtpPass = flag.String("smtp-pass", "", "SMTP password")
	smtpFrom = flag.String("smtp-from", "noreply@ephemeral-chatty.local", "From address for OTP emails")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *cookieSecret != "" {
		auth.SetCookieSecret(*cookieSecret)
	}

	// Persistence for accounts and view state. Sessions and keys are
	// memory-only regardless of backend; that is the product.
	var store storage.Storage
	switch *driver {
	case "memory":
		store = storage.NewMemory()
	default:
		sqlStore, err := sqlstorage.New(*driver, *dsn)
		if err != nil {
			log.Fatal(err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	mailer := email.NewSender(*smtpHost, *smtpPort, *smtpUser, *smtpPass, *smtpFrom)

	keys := keystore.New()
	defer keys.Purge()

	authStore := auth.NewStore(store,
		auth.WithMailer(mailer),
		auth.WithLatency(*latency),
	)
	chatStore := chat.NewStore(keys, chat.WithLatency(*latency))

	// Initialize WebSocket Hub
	hub := ws.NewHub(chatStore, authStore)
	go hub.Run()

	// Initialize Handlers
	authHandler := &handlers.AuthHandler{Auth: authStore}
	chatHandler := &handlers.ChatHandler{Auth: authStore, Chats: chatStore, Hub: hub}
	contactsHandler := &handlers.ContactsHandler{Storage: store}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	// Registration and login
	r.HandleFunc("/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/verify", authHandler.Verify).Methods("POST")
	r.HandleFunc("/resend", authHandler.Resend).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	// Authenticated API
	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/users/{uniqueId}", authHandler.FindUser).Methods("GET")
	api.HandleFunc("/sessions", chatHandler.CreateSession).Methods("POST")
	api.HandleFunc("/sessions", chatHandler.GetSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", chatHandler.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", chatHandler.EndSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/messages", chatHandler.GetMessages).Methods("GET")
	api.HandleFunc("/sessions/{id}/messages", chatHandler.SendMessage).Methods("POST")
	api.HandleFunc("/contacts", contactsHandler.List).Methods("GET")
	api.HandleFunc("/contacts", contactsHandler.Save).Methods("POST")
	api.HandleFunc("/contacts/{id}", contactsHandler.Delete).Methods("DELETE")

	// WebSocket Endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("user_id")
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		userID, err := auth.VerifyCookie(cookie.Value)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ws.ServeWs(hub, w, r, userID)
	})

	log.Println("Starting server on", *addr)
	log.Fatal(http.ListenAndServe(*addr, r))
}
