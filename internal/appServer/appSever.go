// launching the server, wiring the queue, workspaces and compressor
package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ds124wfegd/ktx2converter/config"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/basisu"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/cache"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/kafka"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/queue"
	"github.com/ds124wfegd/ktx2converter/internal/pkg/workspace"
	"github.com/ds124wfegd/ktx2converter/internal/service"
	"github.com/ds124wfegd/ktx2converter/internal/transport"
	"github.com/gin-gonic/gin"

	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags), // os.Stderr can be replaced with ElsasticSearch in the feature
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// App holds every long-lived component so shutdown can release them in order.
type App struct {
	Handler  http.Handler
	Queue    *queue.Queue
	Service  service.ConversionService
	Producer kafka.Producer
	Cache    cache.ResultCache
}

// Build wires the application from configuration.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	workspaces, err := workspace.New(cfg.Compressor.TempRoot, cfg.Compressor.DirPrefix, logrus.StandardLogger())
	if err != nil {
		return nil, err
	}
	if cfg.Compressor.StaleAfter > 0 {
		workspaces.SweepStale(cfg.Compressor.StaleAfter)
	}

	compressor, err := basisu.New(cfg.Compressor.Binary, cfg.Compressor.Timeout, workspaces)
	if err != nil {
		return nil, err
	}
	if err := compressor.Check(); err != nil {
		logrus.Warnf("basisu preflight failed, conversions will fail until it is installed: %v", err)
	} else {
		logrus.WithField("binary", compressor.Binary()).Info("basisu found")
	}

	var resultCache cache.ResultCache = cache.Noop{}
	if cfg.Cache.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			logrus.Warnf("Redis cache unavailable at %s, continuing without cache: %v", cfg.Cache.Addr, err)
		} else {
			resultCache = cache.NewRedisCache(client, cfg.Cache.TTL)
			logrus.Info("Redis result cache initialized")
		}
	}

	producer := kafka.NewProducer(cfg.Events.Brokers, cfg.Events.Topic)

	admission := queue.New(cfg.Queue.MaxConcurrency, cfg.Queue.MaxPending)
	svc := service.NewConversionService(admission, workspaces, compressor, resultCache, producer, logrus.StandardLogger())
	handler := transport.NewKTX2Handler(svc, cfg.Upload.MaxBodyMB<<20, cfg.Queue.MaxWait)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &App{
		Handler:  transport.InitRoutes(handler),
		Queue:    admission,
		Service:  svc,
		Producer: producer,
		Cache:    resultCache,
	}, nil
}

// Close releases external connections. Call it once no request handler is running.
func (a *App) Close(ctx context.Context) {
	if err := a.Service.Close(ctx); err != nil {
		logrus.Errorf("pending conversion events dropped: %s", err.Error())
	}
	if err := a.Producer.Close(); err != nil {
		logrus.Errorf("error closing event producer: %s", err.Error())
	}
	if err := a.Cache.Close(); err != nil {
		logrus.Errorf("error closing result cache: %s", err.Error())
	}
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	}

	app, err := Build(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("error occured while building app: %s", err.Error())
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, app.Handler); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"version":     cfg.Server.AppVersion,
		"environment": cfg.Server.Env,
	}).Printf("App Started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// pending jobs are rejected right away so their handlers return while the
	// listener shuts down, running jobs finish
	var draining sync.WaitGroup
	draining.Add(1)
	go func() {
		defer draining.Done()
		if err := app.Queue.Close(ctx); err != nil {
			logrus.Errorf("queue did not drain: %s", err.Error())
		}
	}()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
	draining.Wait()
	app.Close(ctx)
}
