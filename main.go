package main

import (
	"github.com/robfig/cron/v3"

	"github.com/zmagaj/questlog/config"
	"github.com/zmagaj/questlog/controllers"
	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/routes"
	"github.com/zmagaj/questlog/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Profile{},
		&models.Stats{},
		&models.ActivityType{},
		&models.ActivityLog{},
		&models.Reward{},
		&models.Redemption{},
		&models.DailySummary{},
		&models.WeeklySummary{},
	)

	r := routes.SetupRouter(db)

	// In-process scheduler for the nightly settlement. Set the spec to "off"
	// when an external scheduler owns the trigger.
	if cfg.DailyCloseCron != "" && cfg.DailyCloseCron != "off" {
		settlement := controllers.NewSettlementController(config.DB())
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.DailyCloseCron, func() {
			day := utils.YesterdayIn(cfg.Timezone)
			results, err := settlement.CloseDay(day)
			if err != nil {
				utils.Sugar.Errorf("daily close for %s failed: %v", utils.FormatDay(day), err)
				return
			}
			utils.Sugar.Infof("daily close for %s settled %d profiles", utils.FormatDay(day), len(results))
		})
		if err != nil {
			utils.Sugar.Fatalf("invalid daily close cron spec %q: %v", cfg.DailyCloseCron, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	var serveErr error
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		serveErr = utils.GraceServerTLS(":"+cfg.AppPort, cfg.TLSCertFile, cfg.TLSKeyFile, r)
	} else {
		serveErr = utils.GraceServer(":"+cfg.AppPort, r)
	}
	if serveErr != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", serveErr)
	}
}
