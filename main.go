package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/api"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/config"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/database"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/forecast"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/migrations"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/notify"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/oracle"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/order"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/safety"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/seed"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadMedicines(db, "assets/medicines.csv")

	st := store.New(db)

	var policy oracle.Oracle
	if cfg.OracleBaseURL != "" {
		policy = oracle.NewClient(cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.OracleModel, cfg.OracleTimeout)
	} else {
		logger.Warn("no oracle endpoint configured, using deterministic fallback oracle")
		policy = &oracle.Static{}
	}

	evaluator := safety.NewEvaluator(st.Prescriptions, st.Orders, policy, logger)
	webhook := notify.NewWebhook(cfg.FulfillmentWebhookURL, logger)
	orders := order.NewService(st.Orders, webhook, logger)
	forecasts := forecast.NewService(st, policy, cfg.AlertWindowDays, logger)

	handler := api.New(db, st, evaluator, orders, forecasts, cfg.Secret, cfg.MaxOrderQuantity, logger)

	logger.Info("server starting", zap.String("port", cfg.HTTPPort))
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
