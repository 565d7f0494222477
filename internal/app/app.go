package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/lukasbauer/vocalkart/internal/cache"
	"github.com/lukasbauer/vocalkart/internal/eventlog"
	"github.com/lukasbauer/vocalkart/internal/httpapi"
	"github.com/lukasbauer/vocalkart/internal/intent"
	"github.com/lukasbauer/vocalkart/internal/jobs"
	"github.com/lukasbauer/vocalkart/internal/llm"
	"github.com/lukasbauer/vocalkart/internal/notifications"
	"github.com/lukasbauer/vocalkart/internal/share"
	"github.com/lukasbauer/vocalkart/internal/store"
	"github.com/lukasbauer/vocalkart/internal/stt"
	"github.com/lukasbauer/vocalkart/internal/tts"
	"github.com/lukasbauer/vocalkart/internal/voice"
)

type App struct {
	cfg         Config
	logger      *log.Logger
	db          *pgxpool.Pool
	rdb         *redis.Client
	nc          *nats.Conn
	store       *store.Store
	products    *cache.Products
	eventLog    *eventlog.Logger
	detector    *intent.Detector
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	share       *share.Service
	retention   *jobs.EventRetentionJob
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Migrations are applied externally; see migrations/.
	s := store.New(db)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    s,
		eventLog: eventlog.New(db),
	}

	// Redis is optional: without it product lookups go straight to Postgres.
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Printf("cache: redis unavailable, caching disabled: %v", err)
	}
	a.rdb = rdb
	a.products = cache.NewProducts(s, rdb, cfg.ProductCacheTTL, logger)

	a.detector = NewDetector(cfg, logger)

	if cfg.DeepgramAPIKey != "" {
		a.transcriber = stt.NewDeepgramClient(stt.DeepgramConfig{
			APIKey:      cfg.DeepgramAPIKey,
			Model:       cfg.STTModel,
			SmartFormat: true,
		})
	} else {
		logger.Println("stt: DEEPGRAM_API_KEY not set, voice sessions disabled")
	}

	if cfg.ElevenLabsAPIKey != "" {
		a.synthesizer = tts.NewElevenLabsClient(tts.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			VoiceID:    cfg.TTSVoiceID,
			ModelID:    cfg.TTSModelID,
			Stability:  cfg.TTSStability,
			Similarity: cfg.TTSSimilarity,
		})
	} else {
		logger.Println("tts: ELEVENLABS_API_KEY not set, responses will not be spoken")
	}

	nc, err := notifications.ConnectNATS(cfg.NATSURL, logger)
	if err != nil {
		logger.Printf("marketplace: nats unavailable, marketplace sharing disabled: %v", err)
	}
	a.nc = nc

	svc, err := a.newShareService()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.share = svc

	a.retention = jobs.NewEventRetentionJob(s, logger, cfg.EventRetention, time.Hour)
	a.retention.Start()

	return a, nil
}

// NewDetector builds the intent detector: the language model behind a
// circuit breaker when OPENAI_API_KEY is set, the rule matcher alone
// otherwise.
func NewDetector(cfg Config, logger *log.Logger) *intent.Detector {
	if cfg.OpenAIAPIKey == "" {
		logger.Println("intent: OPENAI_API_KEY not set, using rule matcher only")
		return intent.NewDetector(nil, logger)
	}
	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.LLMBaseURL,
		Model:      cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
		HTTPClient: newPooledHTTPClient(),
	})
	client.SetSystemPrompt(cfg.LLMPrompt)
	return intent.NewDetector(llm.NewBreaker(client, llm.BreakerConfig{Name: "llm"}, logger), logger)
}

// newPooledHTTPClient keeps connections to the model endpoint warm between
// turns.
func newPooledHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// newShareService registers a publisher for every configured backend,
// limited to SHARE_DESTINATIONS when that is set.
func (a *App) newShareService() (*share.Service, error) {
	cfg := a.cfg
	svc := share.NewService(cfg.ProductBaseURL, a.logger)

	allowed := map[share.Destination]bool{}
	for _, d := range share.ParseDestinations(cfg.ShareDestinations) {
		allowed[d] = true
	}
	register := func(d share.Destination, fn share.PublisherFunc) {
		if len(allowed) > 0 && !allowed[d] {
			return
		}
		svc.Register(d, fn)
	}

	if sms := notifications.NewSMSClient(notifications.SMSConfig{
		AccountSID:     cfg.TwilioAccountSID,
		AuthToken:      cfg.TwilioAuthToken,
		SenderNumber:   cfg.TwilioSMSFrom,
		WhatsAppNumber: cfg.TwilioWhatsAppFrom,
	}, a.logger); sms != nil {
		if cfg.TwilioWhatsAppFrom != "" {
			register(share.DestWhatsApp, share.WhatsApp(sms, cfg.ShareWhatsAppTo))
		}
		if cfg.TwilioSMSFrom != "" {
			register(share.DestSMS, share.SMS(sms, cfg.ShareSMSTo))
		}
	}

	if email := notifications.NewEmailClient(notifications.EmailConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.ShareEmailFrom,
		FromName:  "VocalKart",
	}, a.logger); email != nil {
		register(share.DestEmail, share.Email(email, cfg.ShareEmailTo))
	}

	if discord := notifications.NewDiscord(cfg.DiscordWebhookURL, a.logger); discord.Enabled() {
		register(share.DestDiscord, share.Discord(discord))
	}

	apns, err := notifications.NewAPNsClient(notifications.APNsConfig{
		KeyPath:    cfg.APNsKeyPath,
		KeyID:      cfg.APNsKeyID,
		TeamID:     cfg.APNsTeamID,
		BundleID:   cfg.APNsBundleID,
		Production: cfg.APNsProduction,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	if apns.Enabled() {
		register(share.DestPush, share.Push(apns, a.store))
	}

	if a.nc != nil {
		market := notifications.NewMarketplace(a.nc, cfg.MarketplaceSubjectPrefix, a.logger)
		register(share.DestAmazon, share.Marketplace(market, share.DestAmazon))
		register(share.DestBlinkit, share.Marketplace(market, share.DestBlinkit))
	}

	a.logger.Printf("share: destinations %v", svc.Destinations())
	return svc, nil
}

func (a *App) Router(sessions *voice.SessionRegistry) http.Handler {
	routerCfg := httpapi.RouterConfig{
		PublicBaseURL:     a.cfg.PublicBaseURL,
		JWTSecret:         a.cfg.JWTSecret,
		JWTExpiry:         a.cfg.JWTExpiry,
		DefaultLanguage:   a.cfg.DefaultLanguage,
		DefaultCategory:   a.cfg.DefaultCategory,
		MaxRecordingBytes: a.cfg.MaxRecordingBytes,
	}
	return httpapi.NewRouter(routerCfg, a.logger, httpapi.Deps{
		Store:       a.store,
		Products:    a.products,
		Detector:    a.detector,
		Transcriber: a.transcriber,
		Synthesizer: a.synthesizer,
		Share:       a.share,
		EventLog:    a.eventLog,
		Sessions:    sessions,
	})
}

// Close flushes pending event writes and closes every connection.
func (a *App) Close() error {
	if a.retention != nil {
		a.retention.Stop()
	}
	a.eventLog.Close()
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Printf("marketplace: nats drain failed: %v", err)
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
