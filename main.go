package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"apnsd/apns"
	"apnsd/handlers"
	"apnsd/hub"
	"apnsd/middleware"
	"apnsd/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Addr     string
	CertFile string
	KeyFile  string
	HTTPMode bool
	DBPath   string

	TeamID      string
	KeyID       string
	AuthKeyFile string
	Topic       string
	Sandbox     bool

	// Pusher overrides the real APNs client; used by the e2e tests.
	Pusher hub.Pusher
}

func main() {
	certFile := flag.String("cert", "certs/cert.pem", "Path to TLS certificate file")
	keyFile := flag.String("key", "certs/key.pem", "Path to TLS key file")
	addr := flag.String("addr", ":8443", "Address to listen on")
	httpMode := flag.Bool("http", false, "Run in HTTP mode (disable TLS)")
	dbPath := flag.String("db", "apnsd.db", "Path to the SQLite database")
	teamID := flag.String("team", os.Getenv("APNS_TEAM_ID"), "Apple developer team id")
	keyID := flag.String("key-id", os.Getenv("APNS_KEY_ID"), "APNs auth key id")
	authKey := flag.String("auth-key", os.Getenv("APNS_AUTH_KEY"), "Path to the .p8 auth key")
	topic := flag.String("topic", "", "Default apns-topic (app bundle id)")
	sandbox := flag.Bool("sandbox", false, "Use the sandbox gateway")
	flag.Parse()

	cfg := Config{
		Addr:        *addr,
		CertFile:    *certFile,
		KeyFile:     *keyFile,
		HTTPMode:    *httpMode,
		DBPath:      *dbPath,
		TeamID:      *teamID,
		KeyID:       *keyID,
		AuthKeyFile: *authKey,
		Topic:       *topic,
		Sandbox:     *sandbox,
	}

	srv, err := run(cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	if cfg.HTTPMode {
		log.Printf("Server listening on %s (HTTP - TLS Disabled)", cfg.Addr)
		log.Printf("WARNING: Traffic is unencrypted. Ensure you are running behind a secure proxy.")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: ", err)
		}
	} else {
		log.Printf("Server listening on %s (TLS 1.3 strict)", cfg.Addr)

		// Check if cert files exist, generate if not
		if _, err := os.Stat(cfg.CertFile); os.IsNotExist(err) {
			log.Printf("Certificate file %s not found. Generating self-signed certificate...", cfg.CertFile)
			if err := generateSelfSignedCert(cfg.CertFile, cfg.KeyFile); err != nil {
				log.Fatalf("Failed to generate certificate: %v", err)
			}
			log.Printf("Successfully generated self-signed certificate at %s and %s", cfg.CertFile, cfg.KeyFile)
		} else {
			log.Printf("Found existing certificate: %s", cfg.CertFile)
		}

		if err := srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: ", err)
		}
	}
}

func run(cfg Config) (*http.Server, error) {
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	setupAdminUser(s)

	h, err := setupHub(cfg, s)
	if err != nil {
		return nil, err
	}

	h.StartQueueProcessor(context.Background())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Public routes (no auth)
	router.POST("/admin/login", handlers.LoginHandler(s))

	// Authenticated routes
	auth := router.Group("/")
	auth.Use(middleware.JWTAuthMiddleware())
	{
		// Sender routes
		senders := auth.Group("/")
		senders.Use(middleware.RequireRole(middleware.RoleSender))
		{
			senders.POST("/send", handlers.SendHandler(h))
			senders.POST("/devices", handlers.RegisterDeviceHandler(h))
			senders.DELETE("/devices/:token", handlers.UnregisterDeviceHandler(h))
			senders.GET("/devices", handlers.ListDevicesHandler(h))
			senders.GET("/stats", handlers.StatsHandler(h))
		}

		// Admin routes
		admin := auth.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.POST("/users", handlers.CreateUserHandler(s))
			admin.DELETE("/users/:username", handlers.DeleteUserHandler(s))
			admin.GET("/users", handlers.ListUsersHandler(s))
		}
	}

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	if !cfg.HTTPMode {
		// Configure TLS 1.3 Strict
		server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_CHACHA20_POLY1305_SHA256,
			},
		}
	}

	return server, nil
}

// setupHub wires the delivery hub to either the injected pusher or a
// real APNs client built from the config.
func setupHub(cfg Config, s store.Store) (*hub.Hub, error) {
	if cfg.Pusher != nil {
		return hub.NewHub(s, cfg.Pusher), nil
	}

	if cfg.TeamID == "" || cfg.KeyID == "" || cfg.AuthKeyFile == "" {
		return nil, fmt.Errorf("APNs credentials required: -team, -key-id and -auth-key")
	}

	signingKey, err := os.ReadFile(cfg.AuthKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth key: %w", err)
	}

	host := "production"
	if cfg.Sandbox {
		host = "development"
	}

	client, err := apns.NewClient(apns.Config{
		TeamID:         cfg.TeamID,
		KeyID:          cfg.KeyID,
		SigningKey:     signingKey,
		Host:           host,
		DefaultTopic:   cfg.Topic,
		RequestTimeout: 30 * time.Second,
		KeepAlive:      time.Minute,
	})
	if err != nil {
		return nil, err
	}

	client.Events().OnError(func(rej *apns.Rejection) {
		log.Printf("[APNS] Rejected %s: %d %s", rej.Notification.DeviceToken, rej.StatusCode, rej.Reason)
	})

	h := hub.NewHub(s, client)
	h.WatchFeedback(client.Events())
	log.Printf("[APNS] Client initialized (team=%s key=%s host=%s)", cfg.TeamID, cfg.KeyID, host)
	return h, nil
}

func setupAdminUser(s store.Store) {
	hasAdmin, err := s.HasAdminUser()
	if err != nil {
		log.Printf("[AUTH] Failed to check for admin user: %v", err)
		return
	}
	if hasAdmin {
		return
	}

	user, err := s.GetUser("admin")
	if err != nil {
		log.Printf("[AUTH] Failed to check for existing 'admin' username: %v", err)
	}
	if user != nil {
		if err := s.UpdateUserRole("admin", middleware.RoleAdmin); err != nil {
			log.Printf("[AUTH] Failed to promote 'admin' user: %v", err)
		} else {
			log.Printf("[AUTH] Promoted existing user 'admin' to admin role.")
		}
		return
	}

	password, err := randomPassword(12)
	if err != nil {
		log.Printf("[AUTH] Failed to generate password: %v", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AUTH] Failed to hash password: %v", err)
		return
	}

	if err := s.CreateUser("admin", string(hash), middleware.RoleAdmin); err != nil {
		log.Printf("[AUTH] Failed to create admin user: %v", err)
		return
	}

	log.Printf("==================================================")
	log.Printf("[AUTH] Admin user created:")
	log.Printf("[AUTH] Username: admin")
	log.Printf("[AUTH] Password: %s", password)
	log.Printf("==================================================")
}

func randomPassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

func generateSelfSignedCert(certPath, keyPath string) error {
	// ensure directory exists
	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return err
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"apnsd"},
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(365 * 24 * time.Hour),

		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	template.DNSNames = append(template.DNSNames, "localhost")
	template.IPAddresses = append(template.IPAddresses, net.ParseIP("127.0.0.1"))

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return err
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		return err
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: derBytes}); err != nil {
		return err
	}

	keyOut, err := os.Create(keyPath)
	if err != nil {
		return err
	}
	defer keyOut.Close()
	privBytes := x509.MarshalPKCS1PrivateKey(priv)
	return pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privBytes})
}
