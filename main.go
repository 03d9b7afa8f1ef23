package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"legalbot-backend/admin"
	"legalbot-backend/chat"
	"legalbot-backend/conn"
	"legalbot-backend/contracts"
	"legalbot-backend/conversations"
	"legalbot-backend/login"
	"legalbot-backend/migrations"
	"legalbot-backend/openai"
	"legalbot-backend/pinecone"
	"legalbot-backend/profile"
	"legalbot-backend/quota"
	"legalbot-backend/rag"
)

const embeddingDimension = 768

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] no .env file, using process environment")
	}

	db, err := conn.NewMySQL()
	if err != nil {
		log.Fatalf("[main] mysql: %v", err)
	}
	migrations.Init(db)
	if err := migrations.Migrate(); err != nil {
		log.Fatalf("[main] migrate: %v", err)
	}

	dimension := embeddingDimension
	if v := os.Getenv("EMBEDDING_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dimension = n
		}
	}

	// The retrieval engine starts unconfigured when no credentials are set;
	// chat then degrades to 503 until an admin posts /admin/config.
	embedder := openai.NewEmbedder(os.Getenv("OPENAI_API_KEY"), dimension)
	var store rag.Store
	if key := os.Getenv("PINECONE_API_KEY"); key != "" {
		store = rag.NewPineconeStore(pinecone.NewClient(key))
	}
	engine := rag.New(store, embedder, os.Getenv("PINECONE_INDEX_NAME"))
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := engine.EnsureReady(ctx); err != nil {
			log.Printf("[main] index not ready at startup: %v", err)
		}
		cancel()
	}

	convRepo := conversations.NewRepository(db)
	fileRepo := admin.NewFileRepo(db)
	validator := quota.NewValidator(quota.NewSQLStore(db))

	outputDir := os.Getenv("CONTRACT_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "."
	}
	renderer := contracts.NewFileRenderer(os.Getenv("CONTRACT_TEMPLATE_URL"), outputDir)
	templateName := os.Getenv("CONTRACT_TEMPLATE_NAME")
	if templateName == "" {
		templateName = "output_template.docx"
	}

	chatHandler := &chat.Handler{Orchestrator: &chat.Orchestrator{
		NewGenerator:     func(apiKey string) chat.Generator { return openai.NewClient(apiKey) },
		Retriever:        engine,
		Conversations:    convRepo,
		Quota:            validator,
		SystemKey:        func() string { return os.Getenv("OPENAI_API_KEY") },
		Renderer:         renderer,
		ContractTemplate: templateName,
	}}
	convHandler := &conversations.Handler{Repo: convRepo}
	contractsHandler := &contracts.Handler{Renderer: renderer}
	profileHandler := &profile.Handler{
		SetAPIKey:           migrations.SetAPIKey,
		SetUpgradeRequested: migrations.SetUpgradeRequested,
	}
	adminHandler := &admin.Handler{
		Engine:        engine,
		Files:         fileRepo,
		Conversations: convRepo,
		NewStore: func(apiKey string) rag.Store {
			return rag.NewPineconeStore(pinecone.NewClient(apiKey))
		},
		DownloadDir: outputDir,
	}

	{
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		adminHandler.ReconcilePendingDeletes(ctx)
		cancel()
	}

	r := gin.Default()

	r.POST("/token", login.Handler)
	r.POST("/register", login.RegisterHandler)
	r.GET("/verify-email", login.VerifyEmailHandler)
	r.POST("/forgot-password", login.ForgotPasswordHandler)
	r.POST("/reset-password", login.ResetPasswordHandler)

	auth := r.Group("/", login.RequireUser())
	auth.GET("/users/me", profileHandler.Me)
	auth.PUT("/users/me/gemini", profileHandler.UpdateAPIKey)
	auth.POST("/users/me/upgrade", profileHandler.RequestUpgrade)
	auth.POST("/chat", chatHandler.Chat)
	auth.POST("/chat/stream", chatHandler.ChatStream)
	auth.POST("/chat-contract", chatHandler.ChatContract)
	auth.POST("/download-template", contractsHandler.DownloadTemplate)
	auth.GET("/history", convHandler.History)
	auth.GET("/history/:session_id", convHandler.Detail)
	auth.GET("/download/:filename", adminHandler.Download)

	statsHandler := &admin.StatsHandler{DB: db}

	adm := r.Group("/admin", login.RequireUser(), login.RequireAdmin())
	adm.GET("/stats", statsHandler.Stats)
	adm.POST("/upload", adminHandler.Upload)
	adm.POST("/config", adminHandler.Configure)
	adm.GET("/users", adminHandler.ListUsers)
	adm.PUT("/users/:username/subscription", adminHandler.SetSubscription)
	adm.PUT("/users/:username/status", adminHandler.SetStatus)
	adm.GET("/list-file", adminHandler.ListFiles)
	adm.GET("/check-file/:filename", adminHandler.CheckFile)
	adm.DELETE("/delete-file/:filename", adminHandler.DeleteFile)
	adm.DELETE("/deleteAll", adminHandler.DeleteAllData)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("[main] server: %v", err)
	}
}
