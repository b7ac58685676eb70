// cmd/conciliacao/main.go
package main

import (
	"log"

	"conciliacao-service/internal/api/handlers"
	"conciliacao-service/internal/api/responses"
	"conciliacao-service/internal/config"
	"conciliacao-service/internal/core/accounts"
	"conciliacao-service/internal/core/reconciliation"
	"conciliacao-service/internal/database"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Falha ao carregar a configuração: ", err)
	}

	responses.InitLogger()

	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Falha ao aplicar as migrações: ", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal("Falha ao abrir o banco de dados: ", err)
	}
	defer db.Close()

	accountService := accounts.NewService(db)
	reconciliationService := reconciliation.NewService(db)

	accountHandler := handlers.NewAccountHandler(accountService)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService)

	router := gin.Default()

	apiV1 := router.Group("/api/v1")
	{
		// Sem Middleware -- Gateway lida com autenticação
		apiV1.POST("/accounts", accountHandler.Create)
		apiV1.GET("/accounts", accountHandler.List)
		apiV1.GET("/accounts/:account", accountHandler.Get)

		days := apiV1.Group("/accounts/:account/days/:date")
		{
			days.POST("/statement-lines", reconciliationHandler.LoadStatementLines)
			days.POST("/ledger-lines", reconciliationHandler.LoadLedgerLines)
			days.GET("", reconciliationHandler.DaySummary)
			days.GET("/lines", reconciliationHandler.ListLines)
			days.POST("/reconcile", reconciliationHandler.Reconcile)
			days.POST("/selection-totals", reconciliationHandler.SelectionTotals)
			days.POST("/auto-match", reconciliationHandler.AutoMatch)
			days.GET("/suggestions", reconciliationHandler.Suggestions)
			days.POST("/close", reconciliationHandler.Close)
			days.POST("/reopen", reconciliationHandler.Reopen)
		}

		apiV1.GET("/accounts/:account/summary", reconciliationHandler.MonthSummary)
		apiV1.POST("/matches/:id/reverse", reconciliationHandler.Reverse)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "service": "conciliacao-service"})
	})

	log.Printf("🚀 Conciliação Service (Go) iniciado e escutando na porta %s", cfg.HTTP.Port)
	if err := router.Run(":" + cfg.HTTP.Port); err != nil {
		log.Fatal("Falha ao iniciar o servidor de conciliação: ", err)
	}
}
