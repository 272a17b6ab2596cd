package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
	"github.com/yoockh/mockinterview/internal/api/routes"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/providers/tts"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/storage"
	"github.com/yoockh/mockinterview/internal/workers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.InitMongo(ctx, cfg.Stores); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(ctx); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	log.Info("MongoDB connected")

	if err := config.InitPostgres(cfg.Stores, log); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.PostgresDB.AutoMigrate(&models.AnswerLog{}); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(ctx, cfg.Stores); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	gemini, err := llm.NewVertexGemini(ctx, cfg.GCP.ProjectID, cfg.GCP.Location, cfg.GCP.ModelName)
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer gemini.Close()

	speech, err := stt.NewGoogleSpeech(ctx, cfg.GCP.STTEncoding, cfg.GCP.STTSampleRate)
	if err != nil {
		log.Fatalf("Speech init error: %v", err)
	}
	defer speech.Close()

	var voice tts.Provider
	if !cfg.GCP.DisableTTS {
		g, err := tts.NewGoogleTTS(ctx, cfg.GCP.TTSVoice)
		if err != nil {
			log.Fatalf("Text-to-Speech init error: %v", err)
		}
		defer g.Close()
		voice = g
	}

	uploader, err := storage.NewGCSUploader(ctx, cfg.GCP.Bucket)
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer uploader.Close()

	sessionRepo := mongorepo.NewSessionRepo(config.MongoDatabase())
	answerSvc := services.NewAnswerService(pgrepo.NewAnswerRepo(config.PostgresDB))
	profileSvc := services.NewProfileService(pgrepo.NewProfileRepo(config.PostgresDB))

	interviewSvc := services.NewInterviewService(services.InterviewDeps{
		Sessions:        sessionRepo,
		Answers:         answerSvc,
		Profiles:        profileSvc,
		Uploader:        uploader,
		Queue:           services.NewStreamQueue(config.RedisClient, cfg.Worker.Stream),
		LLM:             gemini,
		STT:             speech,
		TTS:             voice,
		Cache:           cache.NewRedisCache(config.RedisClient, cfg.ServiceName+":"),
		MaxQuestions:    cfg.Interview.MaxQuestions,
		DefaultLanguage: cfg.Interview.Language,
		Logger:          log,
	})

	pool := &workers.FeedbackWorkerPool{
		Redis:      config.RedisClient,
		Answers:    answerSvc,
		Sessions:   sessionRepo,
		LLM:        gemini,
		NumWorkers: cfg.Worker.NumWorkers,
		Logger:     log,
		Stream:     cfg.Worker.Stream,
		Group:      cfg.Worker.Group,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker init error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.MaxMultipartMemory = 32 << 20
	routes.RegisterRoutes(r, routes.Deps{
		Auth:      cfg.Auth,
		Interview: handlers.NewInterviewHandler(interviewSvc),
		WS:        handlers.NewWSHandler(interviewSvc, config.RedisClient, log),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped")
	}
	_ = config.RedisClient.Close()
	_ = config.MongoClient.Disconnect(context.Background())
}
