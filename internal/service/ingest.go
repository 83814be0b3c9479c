package service

import (
	"Go_Share/config"
	"Go_Share/internal/placement"
	"Go_Share/internal/quota"
	"Go_Share/internal/repo"
	"Go_Share/internal/worker"
	"Go_Share/utils"

	"gorm.io/gorm"
)

// SMTPFromConfig picks the mail settings out of cfg.
func SMTPFromConfig(cfg config.Config) utils.SMTPConfig {
	return utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		TLS:      cfg.SMTPTLS,
		StartTLS: cfg.SMTPStartTLS,
	}
}

// NewIngestWorker wires the worker to MySQL-backed sinks.
func NewIngestWorker(cfg config.Config, db *gorm.DB, shares repo.ShareStore) *worker.IngestWorker {
	return worker.NewIngestWorker(worker.Deps{
		Shares:   shares,
		Owners:   repo.NewUserRepo(db),
		Paths:    placement.NewResolver(),
		Quota:    quota.NewAccountant(shares, cfg.StoreTimeout),
		Audit:    NewAuditService(repo.NewAuditRepo(db)),
		Notifier: NewNotificationService(repo.NewNotificationRepo(db), SMTPFromConfig(cfg), utils.SendMail, cfg.AppBaseURL),
		Timeout:  cfg.StoreTimeout,
	})
}
