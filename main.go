package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"parking_billing/internal/api"
	"parking_billing/internal/api/handler"
	"parking_billing/internal/api/middleware"
	"parking_billing/internal/config"
	"parking_billing/internal/iot"
	"parking_billing/internal/repository/postgresql"
	"parking_billing/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established.")

	// 3. AWS SDK config and clients
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Could not load AWS SDK config: %v", err)
	}

	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
		if cfg.IoTMQTTEndpoint != "" {
			endpointWithSchema := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		}
	})
	rekognitionClient := rekognition.NewFromConfig(awsSDKCfg)

	// 4. Repositories and the ledger store
	userRepo := postgresql.NewPgUserRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	ledgerStore := postgresql.NewPgLedgerStore(db)

	// 5. WebSocket availability feed
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()

	// 6. Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiration)
	capacityManager := service.NewCapacityManager(ledgerStore)
	sessionLedger := service.NewSessionLedger(ledgerStore, capacityManager, cfg.StorageTimeout)
	lotService := service.NewLotService(lotRepo, sessionRepo, ledgerStore, capacityManager)
	sessionQueries := service.NewSessionQueryService(sessionRepo)
	gateService := service.NewGateService(iotDataPlaneClient)
	lprService := service.NewLPRService(rekognitionClient)
	intake := service.NewRecognitionIntake(lotRepo, sessionLedger, gateService, webSocketManager)

	// 7. Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 8. SQS Consumer for the recognizer feed
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSEventQueueURL == "" {
		log.Println("WARNING: SQS_EVENT_QUEUE_URL is not set. SQS Consumer will not run.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg.SQSEventQueueURL, intake)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
		}()
	}

	// 9. HTTP Router
	router := api.SetupRouter(authService, lotService, sessionQueries, intake, lprService, authMiddleware, webSocketManager)

	// 10. HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shut down: %v", err)
	}

	if cfg.SQSEventQueueURL != "" {
		log.Println("Waiting for SQS consumer to stop (up to 5 seconds)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer stopped.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer did not stop within the grace period.")
		}
	}

	log.Println("Server exited.")
}
