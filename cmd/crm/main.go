package main

import (
	leadhandler "tripdesk/internal/leads/handler"
	leadrepository "tripdesk/internal/leads/repository"
	leadservice "tripdesk/internal/leads/service"
	leadvalidator "tripdesk/internal/leads/validator"
	userhandler "tripdesk/internal/users/handler"
	userrepository "tripdesk/internal/users/repository"
	userservice "tripdesk/internal/users/service"
	uservalidator "tripdesk/internal/users/validator"
	"tripdesk/pkg/app"
	"tripdesk/pkg/config"
	"tripdesk/pkg/events"
	"tripdesk/pkg/mail"
)

func main() {
	cfg := config.Load("crm")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	mailer := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	if mailer == nil {
		cfg.Log.Warn("SMTP not configured, email notifications disabled")
	}

	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaLeadEventsTopic, cfg.Log)
	if publisher == nil {
		cfg.Log.Warn("Kafka not configured, lead events disabled")
	} else {
		defer publisher.Close()
	}

	userRepo := userrepository.NewMongoUserRepository(cfg)
	userService := userservice.NewUserService(userRepo, uservalidator.NewUserValidator(), mailer, cfg)

	leadRepo := leadrepository.NewMongoLeadRepository(cfg)
	activityRepo := leadrepository.NewMongoActivityRepository(cfg)
	leadService := leadservice.NewLeadService(
		leadRepo,
		activityRepo,
		userRepo,
		leadvalidator.NewLeadValidator(),
		mailer,
		publisher,
		cfg,
	)

	healthHandler := userhandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log)
	leadHandler := leadhandler.NewLeadHandler(leadService, cfg.CronSecret, cfg.LeadsPageSize, cfg.Log)
	userHandler := userhandler.NewUserHandler(userService, cfg.Log)

	application := app.NewApplication()
	application.SetApp(cfg, healthHandler, leadHandler, userHandler)
	application.Run()
}
