package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"resumotube/m/v2/app/alerts"
	"resumotube/m/v2/app/api"
	"resumotube/m/v2/app/auth"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/email"
	"resumotube/m/v2/app/openai"
	"resumotube/m/v2/app/payments"
	"resumotube/m/v2/app/status"
	"resumotube/m/v2/app/summaries"
	"resumotube/m/v2/app/util"
	"resumotube/m/v2/app/workers"
	"resumotube/m/v2/app/workers/clearusage"
	"resumotube/m/v2/app/workers/refresh"
	statusworker "resumotube/m/v2/app/workers/status"
	"resumotube/m/v2/app/youtube"
	"strconv"
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	fasthttpprom "github.com/carousell/fasthttp-prometheus-middleware"
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/valyala/fasthttp"
)

const SERVER_TIMEOUT = 60 * time.Second

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// a local .env wins over the shell, missing file is fine
	if err := godotenv.Overload(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	env := util.Env("ENV", "dev")
	var dataDogClient statsd.ClientInterface = &statsd.NoOpClient{}
	statsdClient, err := statsd.New(util.Env("DATADOG_AGENT", "datadog-agent.default.svc.cluster.local:8125"), statsd.WithNamespace("resumotube."))
	if err != nil {
		if env == "production" {
			log.Fatalf("error creating main DataDog client: %v", err)
		}
		log.Warnf("DataDog disabled: %v", err)
	} else {
		dataDogClient = statsdClient
	}

	refreshBatchSize, err := strconv.ParseInt(util.Env("REFRESH_BATCH_SIZE", strconv.Itoa(config.REFRESH_BATCH_SIZE)), 10, 64)
	if err != nil {
		refreshBatchSize = config.REFRESH_BATCH_SIZE
	}

	config.CONFIG = &config.Config{
		AppName:         util.Env("APP_NAME", "ResumoTube"),
		ChannelVideoTTL: util.EnvDuration("CHANNEL_VIDEO_TTL", config.CHANNEL_VIDEO_TTL),
		DataDogClient:   dataDogClient,
		Environment:     env,
		FeedVideoTTL:    util.EnvDuration("FEED_VIDEO_TTL", config.FEED_VIDEO_TTL),
		FrontendURL:     util.Env("FRONTEND_URL", "http://localhost:3000"),
		Google: config.Google{
			ClientID:     util.Env("GOOGLE_CLIENT_ID", ""),
			ClientSecret: util.Env("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  util.Env("GOOGLE_REDIRECT_URI", ""),
		},
		JWTSecret:         util.Env("JWT_SECRET"),
		ListenAddress:     util.Env("BACKEND_LISTEN_ADDRESS", ":"+util.Env("PORT", "3000")),
		MongoDBConnection: util.Env("MONGO_DB_CONNECTION_STRING", util.Env("MONGODB_URI", "")),
		MongoDBName:       util.Env("MONGO_DB_NAME", config.DEFAULT_MONGO_DB_NAME),
		OpenAIAPIKey:      util.Env("OPENAI_API_KEY"),
		OpenAIAPIEndpoint: util.Env("OPENAI_API_ENDPOINT", openai.DEFAULT_ENDPOINT),
		Redis: config.Redis{
			Host:     util.Env("REDIS_HOST", "localhost"),
			Port:     util.Env("REDIS_PORT", "6379"),
			Password: util.Env("REDIS_PASSWORD", ""),
		},
		RefreshBatchSize:       refreshBatchSize,
		RefreshWorkerInterval:  util.EnvDuration("REFRESH_WORKER_INTERVAL", config.REFRESH_WORKER_INTERVAL),
		ResendAPIKey:           util.Env("RESEND_API_KEY", ""),
		SlackWebhookURL:        util.Env("SLACK_WEBHOOK_URL", ""),
		StatusWorkerInterval:   util.EnvDuration("STATUS_WORKER_INTERVAL", config.STATUS_WORKER_INTERVAL),
		StripeSecretKey:        util.Env("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:    util.Env("STRIPE_WEBHOOK_SECRET", ""),
		StripeCurrency:         util.Env("STRIPE_CURRENCY", "brl"),
		TelegramSystemBotToken: util.Env("TELEGRAM_SYSTEM_TOKEN", ""),
		TelegramSystemTo:       util.Env("TELEGRAM_SYSTEM_TO", ""),
		YouTubeAPIKey:          util.Env("YOUTUBE_API_KEY"),
	}
	util.Assert(config.CONFIG.MongoDBConnection != "", "MONGO_DB_CONNECTION_STRING or MONGODB_URI is required")

	err = dataDogClient.Count("main.start", 1, []string{"env:" + config.CONFIG.Environment}, 1)
	if err != nil {
		log.Errorf("error sending metric: %v", err)
	}
	if config.CONFIG.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}
	log.Infof("starting with OpenAI key %s, Stripe key %s", util.Mask(config.CONFIG.OpenAIAPIKey, 7), util.Mask(config.CONFIG.StripeSecretKey, 7))

	stripe.Key = config.CONFIG.StripeSecretKey
	stripe.SetAppInfo(&stripe.AppInfo{
		Name:    "resumotube",
		Version: "1.0.0",
		URL:     config.CONFIG.FrontendURL,
	})

	redis.RedisClient = redis.NewClient(config.CONFIG.Redis)
	mongo.MongoDBClient = mongo.NewClient(config.CONFIG.MongoDBConnection)
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), time.Minute)
	if err := mongo.MongoDBClient.EnsureIndexes(indexCtx); err != nil {
		log.Errorf("failed to ensure MongoDB indexes: %v", err)
	}
	cancelIndexes()

	yt, err := youtube.NewClient(context.Background(), config.CONFIG)
	if err != nil {
		log.Fatalf("ERROR creating YouTube client: %v", err)
	}
	ai := openai.NewAPI(config.CONFIG)
	summariesService := summaries.NewService(mongo.MongoDBClient, yt, ai, redis.RedisClient, config.CONFIG)
	mailer := email.NewMailer(config.CONFIG)
	paymentsService := payments.NewService(mongo.MongoDBClient, payments.StripeGateway{}, mailer, config.CONFIG)
	statusHandler := status.New(mongo.MongoDBClient, redis.RedisClient, ai)
	notifier := alerts.New(config.CONFIG)

	server := api.NewServer(
		mongo.MongoDBClient,
		summariesService,
		paymentsService,
		mailer,
		auth.NewGoogleOAuth(config.CONFIG.Google),
		yt,
		redis.RedisClient,
		statusHandler,
		config.CONFIG,
	)
	rtr := router.New()
	server.Routes(rtr)
	prom := fasthttpprom.NewPrometheus("resumotube")
	prom.Use(rtr)

	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	backgroundWorkers := []*workers.Worker{
		refresh.NewWorker(mongo.MongoDBClient, summariesService, config.CONFIG),
		statusworker.NewWorker(statusHandler, redis.RedisClient, notifier, config.CONFIG),
		clearusage.NewWorker(redis.RedisClient),
	}
	for _, w := range backgroundWorkers {
		go w.Start(workersCtx)
	}

	httpServer := &fasthttp.Server{
		Handler:      fasthttp.TimeoutHandler(api.RequestLogger(prom.Handler), SERVER_TIMEOUT, "Request timeout"),
		Name:         config.CONFIG.AppName,
		ReadTimeout:  SERVER_TIMEOUT,
		WriteTimeout: SERVER_TIMEOUT,
	}

	go TearDown(sigs, done, httpServer, notifier, cancelWorkers, backgroundWorkers)

	go func() {
		err := httpServer.ListenAndServe(config.CONFIG.ListenAddress)
		util.Assert(err == nil, "ListenAndServe:", err)
	}()

	successfulStartMessage := fmt.Sprintf("📺 %s started successfully 🚀 inside %s on %s", config.CONFIG.AppName, util.Env("POD_NAME", "unknown"), config.CONFIG.ListenAddress)
	if err := notifier.Alert(context.Background(), successfulStartMessage); err != nil {
		log.Errorf("Failed to send start message: %v", err)
	}
	log.Info(successfulStartMessage)

	<-done
	log.Info("Done")
}

func TearDown(sigs chan os.Signal, done chan struct{}, httpServer *fasthttp.Server, notifier alerts.Notifier, cancelWorkers context.CancelFunc, backgroundWorkers []*workers.Worker) {
	<-sigs
	exitMessage := fmt.Sprintf("📺 %s bids farewell ❌ inside %s", config.CONFIG.AppName, util.Env("POD_NAME", "unknown"))
	log.Info(exitMessage)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := notifier.Alert(ctx, exitMessage); err != nil {
		log.Errorf("TearDown: failed to send exit message: %v", err)
	}

	for _, w := range backgroundWorkers {
		w.StopWorker()
	}
	cancelWorkers()

	if err := httpServer.Shutdown(); err != nil {
		log.Errorf("TearDown: Shutdown for HTTP server: %v", err)
	}
	if err := mongo.MongoDBClient.Disconnect(ctx); err != nil {
		log.Errorf("TearDown: Disconnecting from MongoDB: %v", err)
	}
	done <- struct{}{}
}
