package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/labstack/echo"
	echo_middleware "github.com/labstack/echo/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/Liltopzj/wealthescrow-bot/chat"
	"github.com/Liltopzj/wealthescrow-bot/config"
	"github.com/Liltopzj/wealthescrow-bot/httputils"
	"github.com/Liltopzj/wealthescrow-bot/provider/btcpay"
	"github.com/Liltopzj/wealthescrow-bot/registry"
	"github.com/Liltopzj/wealthescrow-bot/session"
	"github.com/Liltopzj/wealthescrow-bot/telegram"
)

var (
	VERSION = "dev"

	onLoggerDevF        = flag.Bool("logger-dev", false, "Enable development logger.")
	onLoggerDebugLevelF = flag.Bool("logger-debug-level", false, "Enable debug level logger.")
)

func main() {
	defaultLogger("INFO")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	zap.L().Info("Starting escrow bot...", zap.String("version", VERSION))
	defer func() { zap.L().Info("Done.") }()

	var syncLogger func() error
	if *onLoggerDevF {
		syncLogger = developLogger(*onLoggerDebugLevelF)
	} else {
		syncLogger = productionLogger(*onLoggerDebugLevelF)
	}
	defer syncLogger()
	handleTerm(cancel)

	cfg, err := config.Parse()
	if err != nil {
		zap.L().Panic("Failed load configuration.", zap.Error(err))
	}

	btcpayProvider, err := btcpay.NewProvider(btcpay.Config{
		EntrypointURL: cfg.BTCPayURL,
		APIKey:        cfg.BTCPayAPIKey,
		StoreID:       cfg.BTCPayStoreID,
		Timeout:       cfg.GatewayTimeout,
	})
	if err != nil {
		zap.L().Panic("Failed configure BTCPay provider.", zap.Error(err))
	}
	zap.L().Info("BTCPay - configured!")

	bot, err := telegram.NewBot(cfg.BotToken)
	if err != nil {
		zap.L().Panic("Failed configure Telegram bot.", zap.Error(err))
	}
	zap.L().Info("Telegram bot - configured!", zap.String("username", bot.Username()))

	var wg sync.WaitGroup

	principal := telegram.NewPrincipal(cfg.TelegramAppID, cfg.TelegramAppHash, cfg.SessionFile)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := principal.Run(ctx); err != nil && ctx.Err() == nil {
			zap.L().Error("Principal session stopped.", zap.Error(err))
			cancel()
		}
	}()
	select {
	case <-principal.Ready():
		zap.L().Info("Telegram principal - configured!")
	case <-time.After(30 * time.Second):
		zap.L().Panic("Failed connect principal session within 30s.")
	case <-ctx.Done():
		wg.Wait()
		return
	}

	provisioner := chat.NewProvisioner(chat.Config{
		BaseName:    cfg.GroupBaseName,
		About:       "Escrow room created by @" + bot.Username(),
		BotUsername: bot.Username(),
	}, principal)

	coordinator := session.NewCoordinator(
		session.Config{ReplyTTL: cfg.ReplyTTL},
		btcpayProvider,
		provisioner,
		registry.New(nil),
		bot,
	)

	// Webhook server for BTCPay settlement events.
	e := echo.New()
	e.HideBanner = true
	e.Use(echo_middleware.Recover())
	e.Use(echo_middleware.Logger())
	e.Use(echo_middleware.BodyLimit("64K"))
	e.POST("/webhook/btcpay", btcpayProvider.WebhookHandler(cfg.WebhookSecret, coordinator.OnWebhookEvent))

	wg.Add(1)
	go func() {
		defer wg.Done()
		zap.L().Info("start server btcpay webhook",
			zap.String("address", cfg.WebhookAddr),
			zap.Strings("paths", []string{"/webhook/btcpay"}),
		)
		if err := e.Start(cfg.WebhookAddr); err != nil && err != http.ErrServerClosed {
			zap.L().Error("failed run server webhooks", zap.Error(err))
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("failed shutdown server btcpay webhook", zap.Error(err))
		}
	}()

	// Debug mux: /metrics and /healthz.
	debugSrv := &http.Server{Addr: cfg.DebugAddr, Handler: httputils.DebugMux()}
	wg.Add(1)
	go func() {
		defer wg.Done()
		zap.L().Info("start debug mux", zap.String("address", cfg.DebugAddr))
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Error("failed run debug mux", zap.Error(err))
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("failed shutdown debug mux", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.Run(ctx, coordinator); err != nil && ctx.Err() == nil {
			zap.L().Error("Bot stopped.", zap.Error(err))
			cancel()
		}
	}()

	wg.Wait()
}

// Configure configure zap logger.
//
// Available values of level:
// - DEBUG
// - INFO
// - WARN
// - ERROR
// - DPANIC
// - PANIC
// - FATAL
func defaultLogger(levelSet string) {
	level := zapcore.InfoLevel
	if err := level.Set(levelSet); err != nil {
		panic(err)
	}
	config := zap.NewDevelopmentConfig()
	config.Level.SetLevel(level)
	l, err := config.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l.Named("stdlog"))
}

func developLogger(debug bool) func() error {
	zap.L().Sync()

	config := zap.NewDevelopmentConfig()
	config.Development = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	if debug {
		config.Level.SetLevel(zap.DebugLevel)
	} else {
		config.Level.SetLevel(zap.InfoLevel)
	}

	l, err := config.Build(
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l.Named("stdlog"))

	return l.Sync
}

func productionLogger(debug bool) func() error {
	zap.L().Sync()

	config := zap.NewProductionConfig()
	config.Development = false
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if debug {
		config.Level.SetLevel(zap.DebugLevel)
	} else {
		config.Level.SetLevel(zap.InfoLevel)
	}

	l, err := config.Build(
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l.Named("stdlog"))

	return l.Sync
}

func handleTerm(cancel context.CancelFunc) {
	// handle termination signals: first one gracefully, force exit on the second one
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, unix.SIGTERM, unix.SIGINT)
	go func() {
		s := <-signals
		zap.L().Warn("Shutting down.", zap.String("signal", unix.SignalName(s.(unix.Signal))))
		cancel()

		s = <-signals
		zap.L().Panic("Exiting!", zap.String("signal", unix.SignalName(s.(unix.Signal))))
	}()
}
