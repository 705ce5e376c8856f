package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/doc-translator/backend/internal/api"
	"github.com/doc-translator/backend/internal/config"
	"github.com/doc-translator/backend/internal/parse"
	"github.com/doc-translator/backend/internal/prompts"
	"github.com/doc-translator/backend/internal/storage"
	"github.com/doc-translator/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "PDFTranslator.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Initialize the upload spool
	spool, err := storage.NewSpool(cfg.GetTempDir())
	if err != nil {
		fmt.Printf("Failed to initialize spool: %v\n", err)
		os.Exit(1)
	}

	// Load instruction presets (built-in translation preset plus any
	// deployment-specific YAML file)
	catalog, err := prompts.Load(cfg.Parser.PromptPresetFile)
	if err != nil {
		fmt.Printf("Warning: failed to load prompt presets: %v\n", err)
		catalog = prompts.NewCatalog()
	}

	// Build the parsing client. A missing credential is a user-visible
	// configuration state, not a startup failure: the server runs and the
	// translate action is blocked until the key is provided.
	var parser api.DocumentParser
	if cfg.APIKey != "" {
		client, err := parse.NewClient(cfg.APIKey)
		if err != nil {
			fmt.Printf("Failed to create parsing client: %v\n", err)
			os.Exit(1)
		}
		client.BaseURL = cfg.Parser.BaseURL
		client.ParseMode = cfg.Parser.ParseMode
		client.ResultType = cfg.Parser.ResultType
		client.PollInterval = time.Duration(cfg.Parser.PollIntervalSeconds) * time.Second
		client.PollTimeout = time.Duration(cfg.Parser.PollTimeoutMinutes) * time.Minute
		parser = client
	} else {
		fmt.Printf("Warning: %s not set, translation is disabled\n", config.CredentialEnvVar)
	}

	// Initialize API handler
	h := api.NewHandler(parser, spool, catalog)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	if cfg.Advanced.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Advanced.CompressionLevel,
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		if embeddedMode {
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		} else {
			// Development mode - only allow localhost
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	// API Routes
	apiGroup := e.Group("/api")
	apiGroup.GET("/health", h.HandleHealth)
	apiGroup.GET("/prompts", h.HandleListPrompts)
	apiGroup.POST("/translate", h.HandleTranslate)
	apiGroup.POST("/translate/msgpack", h.HandleTranslateMsgpack)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded frontend from binary")
		}
	}

	// Configure server with settings from XML config. The write timeout has
	// to cover the full blocking translation call.
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	credential := "not configured"
	if cfg.APIKey != "" {
		credential = "configured"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           PDF Translation Server                          ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  API Key:    %-45s║\n", credential)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}
