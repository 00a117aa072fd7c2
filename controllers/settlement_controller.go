package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/config"
	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/utils"
)

// SettlementController runs the daily and weekly point settlements. The core
// CloseDay/CloseWeek methods take no gin context so the cron scheduler can
// call them directly.
type SettlementController struct {
	db *gorm.DB
}

// NewSettlementController creates a SettlementController.
func NewSettlementController(db *gorm.DB) *SettlementController {
	return &SettlementController{db: db}
}

// SettlementResult reports the outcome of settling one profile.
type SettlementResult struct {
	ProfileID   uint   `json:"profile_id"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Bonus       int    `json:"bonus"`
	NewTotal    int    `json:"new_total"`
	Status      string `json:"status"`
}

// CloseDay settles the given calendar day (UTC midnight) for every profile.
// A profile whose day was already settled is skipped; one profile failing
// does not abort the rest.
func (s *SettlementController) CloseDay(day time.Time) ([]SettlementResult, error) {
	cfg := config.Get()

	var profiles []models.Profile
	if err := s.db.Order("id asc").Find(&profiles).Error; err != nil {
		return nil, err
	}

	results := make([]SettlementResult, 0, len(profiles))
	for _, p := range profiles {
		res := s.closeDayFor(p, day, cfg.DailyBonusPoints)
		results = append(results, res)
	}
	return results, nil
}

func (s *SettlementController) closeDayFor(p models.Profile, day time.Time, bonusPoints int) SettlementResult {
	out := SettlementResult{ProfileID: p.ID, DisplayName: p.DisplayName}

	from, to := utils.DayWindow(day)

	var logs []models.ActivityLog
	if err := s.db.Preload("ActivityType").
		Where("profile_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			p.ID, models.StatusApproved, from, to).
		Find(&logs).Error; err != nil {
		out.Status = "greška: " + err.Error()
		return out
	}

	earned := 0
	for _, l := range logs {
		earned += l.ActivityType.PointsDelta()
	}
	out.Points = earned

	// Baseline is the mean of up to seven most recent settled days before
	// this one; with no history the baseline is zero, so any positive day
	// beats it.
	var prior []models.DailySummary
	if err := s.db.Where("profile_id = ? AND day < ?", p.ID, day).
		Order("day desc").
		Limit(7).
		Find(&prior).Error; err != nil {
		out.Status = "greška: " + err.Error()
		return out
	}

	baseline := 0.0
	if len(prior) > 0 {
		sum := 0
		for _, d := range prior {
			sum += d.PointsEarned
		}
		baseline = float64(sum) / float64(len(prior))
	}

	bonus := 0
	if float64(earned) > baseline {
		bonus = bonusPoints
	}
	out.Bonus = bonus

	skipped := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.DailySummary{
			ProfileID:    p.ID,
			Day:          day,
			PointsEarned: earned,
			AvgBaseline:  baseline,
			BonusApplied: bonus,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				skipped = true
				return nil
			}
			return err
		}

		if bonus != 0 {
			if err := tx.Model(&models.Stats{}).
				Where("profile_id = ?", p.ID).
				Updates(map[string]interface{}{
					"total_points": gorm.Expr("total_points + ?", bonus),
					"updated_at":   time.Now(),
				}).Error; err != nil {
				return err
			}
		}

		return readTotal(tx, p.ID, &out.NewTotal)
	})
	if err != nil {
		out.Status = "greška: " + err.Error()
		return out
	}
	if skipped {
		out.Bonus = 0
		if err := readTotal(s.db, p.ID, &out.NewTotal); err != nil {
			out.Status = "greška: " + err.Error()
			return out
		}
		out.Status = "preskočeno (već obračunato)"
		return out
	}

	out.Status = "obračunato"
	return out
}

// CloseWeek settles the week starting at weekStart (UTC midnight) for every
// profile: enough workouts earns a bonus, too few costs a penalty.
func (s *SettlementController) CloseWeek(weekStart time.Time) ([]SettlementResult, error) {
	cfg := config.Get()

	var profiles []models.Profile
	if err := s.db.Order("id asc").Find(&profiles).Error; err != nil {
		return nil, err
	}

	results := make([]SettlementResult, 0, len(profiles))
	for _, p := range profiles {
		results = append(results, s.closeWeekFor(p, weekStart, cfg))
	}
	return results, nil
}

func (s *SettlementController) closeWeekFor(p models.Profile, weekStart time.Time, cfg config.AppConfig) SettlementResult {
	out := SettlementResult{ProfileID: p.ID, DisplayName: p.DisplayName}

	weekEnd := weekStart.AddDate(0, 0, 7)

	var workouts int64
	if err := s.db.Model(&models.ActivityLog{}).
		Joins("JOIN activity_types ON activity_types.id = activity_logs.activity_type_id").
		Where("activity_logs.profile_id = ? AND activity_logs.status = ?", p.ID, models.StatusApproved).
		Where("activity_logs.created_at >= ? AND activity_logs.created_at < ?", weekStart, weekEnd).
		Where("activity_types.name = ?", cfg.WorkoutTypeName).
		Count(&workouts).Error; err != nil {
		out.Status = "greška: " + err.Error()
		return out
	}
	out.Points = int(workouts)

	bonus := -cfg.WeeklyPenaltyPoints
	if int(workouts) >= cfg.WeeklyWorkoutTarget {
		bonus = cfg.WeeklyBonusPoints
	}
	out.Bonus = bonus

	skipped := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.WeeklySummary{
			ProfileID:     p.ID,
			WeekStart:     weekStart,
			WorkoutsCount: int(workouts),
			BonusApplied:  bonus,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				skipped = true
				return nil
			}
			return err
		}

		if err := tx.Model(&models.Stats{}).
			Where("profile_id = ?", p.ID).
			Updates(map[string]interface{}{
				"total_points": gorm.Expr("total_points + ?", bonus),
				"updated_at":   time.Now(),
			}).Error; err != nil {
			return err
		}

		return readTotal(tx, p.ID, &out.NewTotal)
	})
	if err != nil {
		out.Status = "greška: " + err.Error()
		return out
	}
	if skipped {
		out.Bonus = 0
		if err := readTotal(s.db, p.ID, &out.NewTotal); err != nil {
			out.Status = "greška: " + err.Error()
			return out
		}
		out.Status = "preskočeno (već obračunato)"
		return out
	}

	out.Status = "obračunato"
	return out
}

// DailyClose is the HTTP trigger for the daily settlement. An anonymous call
// is allowed (the cron scheduler has no session); a call that does carry an
// identity must be the GM.
func (s *SettlementController) DailyClose(ctx *gin.Context) {
	if _, authenticated := getUserID(ctx); authenticated && !isGM(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "Nemaš ovlasti.")
		return
	}

	type request struct {
		Day string `json:"day"`
	}
	var req request
	_ = ctx.ShouldBindJSON(&req)

	day := utils.YesterdayIn(config.Get().Timezone)
	if req.Day != "" {
		parsed, err := utils.ParseDay(req.Day)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "day mora biti u obliku YYYY-MM-DD")
			return
		}
		day = parsed
	}

	results, err := s.CloseDay(day)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to close day")
		return
	}

	utils.Success(ctx, gin.H{"day": utils.FormatDay(day), "results": results})
}

// WeeklyClose is the HTTP trigger for the weekly settlement, GM only. The
// week start is required since there is no natural "yesterday" for weeks.
func (s *SettlementController) WeeklyClose(ctx *gin.Context) {
	type request struct {
		WeekStart string `json:"week_start" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "week_start je obavezan (YYYY-MM-DD)")
		return
	}

	weekStart, err := utils.ParseDay(req.WeekStart)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "week_start mora biti u obliku YYYY-MM-DD")
		return
	}

	results, err := s.CloseWeek(weekStart)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to close week")
		return
	}

	utils.Success(ctx, gin.H{"week_start": utils.FormatDay(weekStart), "results": results})
}
