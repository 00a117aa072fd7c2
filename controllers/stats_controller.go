package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/utils"
)

// StatsController exposes point totals, settlement history and aggregate counts.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// MyStats returns the caller's point totals and streaks.
func (s *StatsController) MyStats(ctx *gin.Context) {
	profile, ok := currentProfile(s.db, ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var stats models.Stats
	if err := s.db.Where("profile_id = ?", profile.ID).First(&stats).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load stats")
		return
	}

	utils.Success(ctx, gin.H{"profile": profile, "stats": stats})
}

// DailySummaries returns the caller's daily settlement history, newest first.
func (s *StatsController) DailySummaries(ctx *gin.Context) {
	profile, ok := currentProfile(s.db, ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var summaries []models.DailySummary
	if err := s.db.Where("profile_id = ?", profile.ID).
		Order("day desc").
		Limit(60).
		Find(&summaries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load daily summaries")
		return
	}

	utils.Success(ctx, gin.H{"summaries": summaries})
}

// WeeklySummaries returns the caller's weekly settlement history, newest first.
func (s *StatsController) WeeklySummaries(ctx *gin.Context) {
	profile, ok := currentProfile(s.db, ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var summaries []models.WeeklySummary
	if err := s.db.Where("profile_id = ?", profile.ID).
		Order("week_start desc").
		Limit(26).
		Find(&summaries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load weekly summaries")
		return
	}

	utils.Success(ctx, gin.H{"summaries": summaries})
}

// Overview returns aggregate counts for the landing page.
func (s *StatsController) Overview(ctx *gin.Context) {
	var profileCount int64
	var pendingCount int64
	var approvedCount int64
	var redemptionCount int64

	if err := s.db.Model(&models.Profile{}).Count(&profileCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		profileCount = 0
	}

	if err := s.db.Model(&models.ActivityLog{}).
		Where("status = ?", models.StatusPending).
		Count(&pendingCount).Error; err != nil {
		pendingCount = 0
	}

	if err := s.db.Model(&models.ActivityLog{}).
		Where("status = ?", models.StatusApproved).
		Count(&approvedCount).Error; err != nil {
		approvedCount = 0
	}

	if err := s.db.Model(&models.Redemption{}).Count(&redemptionCount).Error; err != nil {
		redemptionCount = 0
	}

	utils.Success(ctx, gin.H{
		"profile_count":    profileCount,
		"pending_count":    pendingCount,
		"approved_count":   approvedCount,
		"redemption_count": redemptionCount,
	})
}
