package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/fcv-grader.net/internal/adapter/executor"
	"gitlab.com/fcv-grader.net/internal/adapter/postgres/submissionrepository"
	"gitlab.com/fcv-grader.net/internal/adapter/redis/gradingqueue"
	"gitlab.com/fcv-grader.net/internal/adapter/sandbox"
	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/core/services/grading"
	"gitlab.com/fcv-grader.net/internal/core/services/submission"
	"gitlab.com/fcv-grader.net/internal/domain"
	logger2 "gitlab.com/fcv-grader.net/internal/global/logger"
	http2 "gitlab.com/fcv-grader.net/internal/http"
	"gitlab.com/fcv-grader.net/internal/schedulerengine"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sysCfg, err := config.NewSystemConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger2.Init(sysCfg.LogLevel)
	logger := logger2.Logger.With("service", sysCfg.HttpConfig.ServiceName)
	defer logger.Sync()
	logger.Info("Starting grader service", "sandbox", sysCfg.SandboxConfig.Kind, "debug", sysCfg.DebugMode)

	ctxBg, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := setupDatabase(ctxBg, sysCfg.PostgresConfig)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()

	// SECONDARY PORTS
	box, err := setupSandbox(ctxBg, sysCfg.SandboxConfig, logger)
	if err != nil {
		panic(err)
	}
	runtimes := sysCfg.SandboxConfig.Runtimes
	submissionRepo := submissionrepository.NewSubmissionRepository(db, logger)
	if err := submissionRepo.EnsureSchema(ctxBg); err != nil {
		panic(err)
	}
	queue := gradingqueue.NewQueue(redisClient, sysCfg.GradingSvcCfg, logger)

	//services
	gradingSvc := grading.NewGradingService(grading.Executors{
		Python:     executor.NewPythonExecutor(box, runtimes[domain.LanguagePython], logger),
		Legacy:     executor.NewLegacyExecutor(box, runtimes[domain.LanguagePython], logger),
		JavaScript: executor.NewJavaScriptExecutor(box, runtimes[domain.LanguageJavaScript], logger),
	}, sysCfg.EngineConfig, logger)
	submissionSvc := submission.NewSubmissionService(submissionRepo, queue, gradingSvc, sysCfg.GradingSvcCfg, sysCfg.EngineConfig, logger)
	serviceProvider := http2.NewServiceProvider(gradingSvc, submissionSvc, box.Name(), runtimes)

	//server
	httpServer := http2.NewServer(sysCfg.HttpConfig, sysCfg.RateLimitConfig, sysCfg.JwtConfig, *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	httpServer.Start(ctxBg)

	engine := schedulerengine.NewGradingEngine(sysCfg.GradingSvcCfg, queue, submissionSvc, logger)
	if !sysCfg.DebugMode {
		engine.Start(ctxBg)
	}

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Stop(ctx)
	stop()
	engine.Wait()

	logger.Info("successfully shutdown server")
}

// setupDatabase opens the PostgreSQL connection and checks it answers
func setupDatabase(ctx context.Context, cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return db, nil
}

func setupSandbox(ctx context.Context, cfg *config.SandboxConfig, logger primary.Logger) (secondary.Sandbox, error) {
	switch cfg.Kind {
	case config.SandboxDocker:
		cli, err := sandbox.NewDockerClient(ctx)
		if err != nil {
			return nil, err
		}
		return sandbox.NewDockerSandbox(cli, cfg, logger), nil
	default:
		return sandbox.NewLocalSandbox(cfg, logger), nil
	}
}

// InitReader loads <env>.env, the env name being argv[1] (local when omitted).
// A missing local.env is tolerated so the service can run from plain environment variables.
func InitReader() {
	environment := "local"
	if len(os.Args) >= 2 {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		if len(os.Args) < 2 {
			log.Printf("No %s.env file, using process environment", environment)
			return
		}
		log.Fatalf("Error loading %s.env file", environment)
	}
}
