package main

import (
	"Go_Share/config"
	"Go_Share/internal/gate"
	"Go_Share/internal/handler"
	"Go_Share/internal/mq"
	"Go_Share/internal/quota"
	"Go_Share/internal/repo"
	"Go_Share/internal/service"
	"Go_Share/internal/storage"
	"Go_Share/internal/transport"
	"Go_Share/router"
	"Go_Share/utils"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
)

// main initializes services and starts the HTTP server.
func main() {
	config.InitConfig()
	cfg := config.AppConfig

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.DataRoot, cfg.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create %s: %v", dir, err)
		}
	}

	db, err := repo.OpenMysql(cfg)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	shares, closeCache := repo.NewShareStore(ctx, cfg, db)
	defer closeCache()

	var object *storage.MinioSource
	if cfg.MinioEnabled {
		if object, err = storage.OpenMinio(ctx, cfg); err != nil {
			log.Fatalf("minio: %v", err)
		}
	}
	source := storage.NewRouter(storage.NewLocalSource(cfg.DataRoot), object)

	access := gate.NewAccessGate(utils.CheckPwd)
	uploadGate := gate.NewUploadGate(shares, access, source.UploadDir)
	accountant := quota.NewAccountant(shares, cfg.StoreTimeout)

	queue, err := mq.Open(cfg)
	if err != nil {
		log.Fatalf("ingest queue: %v", err)
	}
	defer queue.Close()

	uploads, err := transport.NewUploads(transport.Config{
		StagingDir: cfg.StagingDir,
		JWTSecret:  cfg.JWTSecret,
	}, uploadGate, queue)
	if err != nil {
		log.Fatalf("tus: %v", err)
	}
	go uploads.Forward(ctx)

	if cfg.IngestEmbedded {
		ingest := service.NewIngestWorker(cfg, db, shares)
		go func() {
			if err := ingest.Run(ctx, queue); err != nil {
				log.Printf("ingest worker stopped: %v", err)
			}
		}()
	}

	janitor := transport.NewJanitor(cfg.StagingDir, cfg.StagingMaxAge)
	if err := janitor.Start(cfg.StagingSweepCron); err != nil {
		log.Fatalf("staging janitor: %v", err)
	}
	defer janitor.Stop()

	limiter := utils.NewIPRateLimiter(cfg.ShareRate, cfg.ShareBurst)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				limiter.Cleanup(now)
			}
		}
	}()

	public := handler.NewPublicHandler(service.NewAccessService(
		shares, access, accountant, source, repo.NewAccessLogRepo(db), cfg.AppBaseURL,
	))
	public.MaxEditBytes = cfg.EditMaxBytes

	r := router.InitRouter(router.Deps{
		JWTSecret: cfg.JWTSecret,
		Shares:    handler.NewShareHandler(service.NewShareService(shares, source), repo.NewAccessLogRepo(db), cfg.AppBaseURL),
		Public:    public,
		Uploads:   uploads.Handler(),
		Limiter:   limiter,
	})

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.HTTPAddr, err)
	}
	if cfg.HTTPMaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.HTTPMaxConns)
	}
	server := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
}
