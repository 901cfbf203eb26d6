package main

import (
	"context"
	"docflow/account"
	"docflow/attachment"
	"docflow/bizerror"
	"docflow/client/es"
	"docflow/client/s3"
	"docflow/common"
	"docflow/config"
	"docflow/domain"
	"docflow/domain/document/documentrest"
	"docflow/event"
	"docflow/indices"
	"docflow/indices/search"
	"docflow/infra/metrics"
	"docflow/infra/tracing"
	"docflow/notify/natspub"
	"docflow/notify/webhook"
	"docflow/persistence"
	"docflow/report"
	"docflow/session"
	"docflow/sessions"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := common.ConfigureLogLevel(os.Getenv("LOG_LEVEL")); err != nil {
		logrus.Fatalf("invalid log level %v", err)
	}
	logrus.Info("service start")

	opts, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		logrus.Fatalf("parse flags failed %v", err)
	}
	conf, err := config.Load(opts)
	if err != nil {
		logrus.Fatalf("load configuration failed %v", err)
	}
	conf.Apply()

	closer, err := tracing.Bootstrap(common.GetServiceName())
	if err != nil {
		logrus.Fatalf("tracing bootstrap failed %v", err)
	}
	defer closer.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v", err)
		}
	}

	// connect database
	persistence.ActiveDataSourceManager = &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := persistence.ActiveDataSourceManager.Start(); err != nil {
		logrus.Fatalf("database connection failed %v", err)
	}
	defer persistence.ActiveDataSourceManager.Stop()

	// database migration (race condition)
	err = persistence.ActiveDataSourceManager.GormDB(context.Background()).AutoMigrate(
		&domain.Document{}, &domain.Signer{}, &domain.AuditEvent{},
		&account.User{}, &account.UserRoleBinding{}).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v", err)
	}
	if err := account.DefaultSecurityConfiguration(context.Background()); err != nil {
		logrus.Fatalf("failed to prepare default security configuration %v", err)
	}

	if err := s3.Bootstrap(); err != nil {
		logrus.Fatalf("object storage bootstrap failed %v", err)
	}
	es.CreateClientFromEnv()

	event.EventHandlers = append(event.EventHandlers, event.LogHandler, indices.IndexDocumentEventHandle)
	if publisher, err := natspub.ConnectFromEnv(); err != nil {
		logrus.Fatalf("nats connection failed %v", err)
	} else if publisher != nil {
		defer publisher.Close()
		event.EventHandlers = append(event.EventHandlers, publisher.Handle)
	}
	if hookConfig := webhook.ParseConfigFromEnv(); hookConfig != nil {
		event.EventHandlers = append(event.EventHandlers, webhook.New(*hookConfig).Handle)
	}

	crontab, err := indices.StartCron(conf.IndexSchedule)
	if err != nil {
		logrus.Fatalf("invalid index schedule %v", err)
	}
	defer crontab.Stop()

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), metrics.Active.GinMiddleware(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "docflow")
	})
	engine.GET("/metrics", gin.WrapH(metrics.Active.Handler()))

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterSessionHandler(engine, session.SimpleAuthFilter())
	account.RegisterUsersHandler(engine, session.SimpleAuthFilter())
	documentrest.RegisterDocumentsRestAPI(engine, session.SimpleAuthFilter())
	attachment.RegisterAttachmentsRestAPI(engine, session.SimpleAuthFilter())
	search.RegisterDocumentSearchRestAPI(engine, session.SimpleAuthFilter())
	indices.RegisterIndicesRestAPI(engine, session.SimpleAuthFilter())
	report.RegisterReportsRestAPI(engine, session.SimpleAuthFilter())

	if err := engine.Run(conf.Listen); err != nil {
		logrus.Fatalf("http server stopped %v", err)
	}
}
