package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"leave-bot/internal/config"
	"leave-bot/internal/dateval"
	"leave-bot/internal/events"
	"leave-bot/internal/handler"
	"leave-bot/internal/holiday"
	"leave-bot/internal/i18n"
	"leave-bot/internal/logger"
	"leave-bot/internal/mattermost"
	"leave-bot/internal/model"
	"leave-bot/internal/recognizer"
	"leave-bot/internal/service"
	"leave-bot/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.ForEnv(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := i18n.Init(cfg.DefaultLocale); err != nil {
		log.Fatal("load locales", zap.Error(err))
	}

	ctx := context.Background()
	loc := cfg.Location()
	checks := map[string]handler.ReadyCheck{}

	// Leave records
	records, closeRecords, err := openLeaveRecords(ctx, cfg, log, checks)
	if err != nil {
		log.Fatal("open leave records", zap.String("backend", cfg.RecordBackend), zap.Error(err))
	}
	defer closeRecords()

	// Dialogue state
	state, closeState, err := openState(ctx, cfg, checks)
	if err != nil {
		log.Fatal("open state store", zap.String("backend", cfg.StateBackend), zap.Error(err))
	}
	defer closeState()

	rec, err := newRecognizer(cfg)
	if err != nil {
		log.Fatal("init recognizer", zap.String("recognizer", cfg.Recognizer), zap.Error(err))
	}

	pub, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatal("init event publisher", zap.String("driver", cfg.EventsDriver), zap.Error(err))
	}
	defer pub.Close()

	calendar, err := holiday.Load(cfg.HolidaysFile, loc)
	if err != nil {
		log.Fatal("load holiday calendar", zap.Error(err))
	}

	leaveSvc := service.NewLeaveService(records, pub, cfg.LeaveCap, log).WithClock(time.Now, loc)
	bot := service.NewBot(state, rec, leaveSvc, calendar, dateval.New(dateval.WithLocation(loc)), log)

	mm := mattermost.NewClient(cfg.MattermostURL, cfg.LeaveBotToken)
	if cfg.LeaveBotToken != "" {
		checks["mattermost"] = func(ctx context.Context) error {
			_, err := mm.Me(ctx)
			return err
		}
	}

	// Routes
	mux := http.NewServeMux()
	limiter := handler.NewUserLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	handler.NewLeaveHandler(bot, mm, cfg.MattermostWebhookToken, cfg.DefaultLocale, limiter, log).RegisterRoutes(mux)
	handler.RegisterHealth(mux, checks)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(log, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("leave bot started",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("records", cfg.RecordBackend),
			zap.String("state", cfg.StateBackend),
			zap.String("recognizer", cfg.Recognizer),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func openLeaveRecords(ctx context.Context, cfg *config.Config, log *zap.Logger, checks map[string]handler.ReadyCheck) (service.LeaveRecordStore, func(), error) {
	switch cfg.RecordBackend {
	case "mongo":
		db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB, log)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() { db.Close(context.Background()) }

		records, err := store.NewMongoLeaveRecords(ctx, db)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		if cfg.LeaveRecordsSeed != "" {
			seed, err := store.LoadLeaveRecords(cfg.LeaveRecordsSeed)
			if err != nil {
				closeDB()
				return nil, nil, err
			}
			n, err := records.Seed(ctx, seed)
			if err != nil {
				closeDB()
				return nil, nil, err
			}
			log.Info("seeded leave records", zap.Int("inserted", n), zap.Int("total", len(seed)))
		}
		checks["mongo"] = db.Ping
		return records, closeDB, nil

	case "memory":
		var seed []model.LeaveRecord
		path := cfg.LeaveRecordsSeed
		if path == "" {
			path = cfg.LeaveRecordsFile
		}
		loaded, err := store.LoadLeaveRecords(path)
		switch {
		case err == nil:
			seed = loaded
		case !errors.Is(err, fs.ErrNotExist):
			return nil, nil, err
		}
		return store.NewMemoryLeaveRecords(seed...), func() {}, nil

	case "file", "":
		return store.NewFileLeaveRecords(cfg.LeaveRecordsFile), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown record backend %q", cfg.RecordBackend)
}

func openState(ctx context.Context, cfg *config.Config, checks map[string]handler.ReadyCheck) (service.StateStore, func(), error) {
	switch cfg.StateBackend {
	case "redis":
		rdb, err := store.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return store.NewRedisState(rdb, cfg.StateTTL).WithProfileTTL(cfg.ProfileTTL), func() { rdb.Close() }, nil
	case "memory", "":
		return store.NewMemoryState(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
}

func newRecognizer(cfg *config.Config) (service.Recognizer, error) {
	switch cfg.Recognizer {
	case "luis":
		if cfg.LUISEndpoint == "" || cfg.LUISAppID == "" {
			return nil, errors.New("LUIS_ENDPOINT and LUIS_APP_ID are required")
		}
		return recognizer.NewLUIS(cfg.LUISEndpoint, cfg.LUISAppID, cfg.LUISKey), nil
	case "openai":
		return recognizer.NewOpenAIFromKey(cfg.OpenAIKey, cfg.OpenAIModel)
	case "keyword", "":
		return recognizer.NewKeyword(), nil
	}
	return nil, fmt.Errorf("unknown recognizer %q", cfg.Recognizer)
}

func newPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case "nats":
		return events.ConnectNATS(ctx, cfg.NATSURL, cfg.NATSSubject, log)
	case "kafka":
		return events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "none", "":
		return events.NewNoop(), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.EventsDriver)
}
