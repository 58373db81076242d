package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"document-routing-server/config"
	"document-routing-server/internal/handler"
	"document-routing-server/internal/repository"
	"document-routing-server/internal/security"
	"document-routing-server/internal/service"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Document-routing-server
// @version 1.0
// @description REST API маршрутизации и согласования документов университета

// @host localhost:8080

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	srv, router := config.SetupServer(cfg.ServerAddr)

	ttl := time.Duration(cfg.TTL.S3AndRedis) * time.Second

	docRepo := repository.NewDocumentRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	fileRepo := repository.NewFileRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, ttl)

	s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
	if err != nil {
		log.Fatalf("Ошибка создания S3 сервиса: %v", err)
	}
	notifier := service.NewRedisNotifier(redisClient, cfg.Routing.NotifyQueuePrefix)

	docService := service.NewDocumentService(db.DB, docRepo, recipientRepo, fileRepo, departmentRepo, cacheRepo, s3Service, notifier, activityRepo, ttl)
	routingService := service.NewRoutingService(db.DB, docRepo, recipientRepo, fileRepo, departmentRepo, cacheRepo, s3Service, notifier, activityRepo, ttl)

	docHandler := handler.NewDocumentHandler(docService, &cfg.TTL)
	routingHandler := handler.NewRoutingHandler(routingService)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupDocumentRoutes(router, docHandler, routingHandler, cfg)

	runServer(ctx, srv)
}

func setupDocumentRoutes(r chi.Router, docHandler *handler.DocumentHandler, routingHandler *handler.RoutingHandler, cfg *config.AppConfig) {
	r.Route("/api", func(r chi.Router) {
		r.Use(security.IdentityMiddleware(&cfg.JWT))

		r.Route("/docs", func(r chi.Router) {
			r.Get("/", docHandler.ListDocuments)
			r.Post("/", docHandler.CreateDocument)

			r.Route("/{doc_id}", func(r chi.Router) {
				r.Get("/", docHandler.GetDocument)
				r.Delete("/", docHandler.DeleteDocument)
				r.Post("/publish", docHandler.PublishDocument)

				r.Post("/forward", routingHandler.Forward)
				r.Post("/respond", routingHandler.Respond)
				r.Post("/receive", routingHandler.Receive)
				r.Post("/resend", routingHandler.Resend)
				r.Post("/cancel", routingHandler.Cancel)
			})
		})

		r.Post("/receive/barcode", routingHandler.ReceiveByBarcode)
		r.Delete("/files/{file_id}", docHandler.DeleteFile)
	})

	r.Route("/public/docs", func(r chi.Router) {
		r.Get("/{token}", docHandler.GetPublicDocument)
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
