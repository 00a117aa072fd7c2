package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/utils"
)

const activityTypesCacheKey = "cache:activity_types"

// ActivityController handles the activity catalogue, logging and GM approval.
type ActivityController struct {
	db *gorm.DB
}

// NewActivityController creates an ActivityController.
func NewActivityController(db *gorm.DB) *ActivityController {
	return &ActivityController{db: db}
}

// ListTypes returns the activity catalogue, cached for a few minutes since it
// changes rarely.
func (a *ActivityController) ListTypes(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(activityTypesCacheKey); ok {
		var cached []models.ActivityType
		if json.Unmarshal(b, &cached) == nil {
			utils.Success(ctx, gin.H{"types": cached})
			return
		}
	}

	var types []models.ActivityType
	if err := a.db.Order("id asc").Find(&types).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load activity types")
		return
	}

	utils.CacheSetJSON(activityTypesCacheKey, types, 5*time.Minute)
	utils.Success(ctx, gin.H{"types": types})
}

// CreateType adds an activity to the catalogue and drops the cached copy.
func (a *ActivityController) CreateType(ctx *gin.Context) {
	type request struct {
		Name       string `json:"name" binding:"required,max=64"`
		BasePoints int    `json:"base_points"`
		Negative   bool   `json:"negative"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "name je obavezan")
		return
	}

	actType := models.ActivityType{
		Name:       req.Name,
		BasePoints: req.BasePoints,
		Negative:   req.Negative,
	}
	if err := a.db.Create(&actType).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to create activity type")
		return
	}

	utils.InvalidateByPrefix(activityTypesCacheKey)
	utils.Success(ctx, gin.H{"type": actType})
}

// Create logs an activity for the caller. Logs always start pending; only GM
// approval moves points.
func (a *ActivityController) Create(ctx *gin.Context) {
	type request struct {
		ActivityTypeID uint   `json:"activity_type_id" binding:"required"`
		Note           string `json:"note"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "activity_type_id je obavezan")
		return
	}

	profile, ok := currentProfile(a.db, ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var actType models.ActivityType
	if err := a.db.First(&actType, req.ActivityTypeID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "Nepoznata aktivnost.")
		return
	}

	log := models.ActivityLog{
		ProfileID:      profile.ID,
		ActivityTypeID: actType.ID,
		Note:           utils.Sanitize(req.Note),
		Status:         models.StatusPending,
	}
	if err := a.db.Create(&log).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create activity log")
		return
	}
	log.ActivityType = actType

	utils.Success(ctx, gin.H{"log": log})
}

// ListMine returns the caller's activity logs, newest first.
func (a *ActivityController) ListMine(ctx *gin.Context) {
	profile, ok := currentProfile(a.db, ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var logs []models.ActivityLog
	if err := a.db.Preload("ActivityType").
		Where("profile_id = ?", profile.ID).
		Order("created_at desc").
		Limit(200).
		Find(&logs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load activity logs")
		return
	}

	utils.Success(ctx, gin.H{"logs": logs})
}

// ListPending returns all pending logs across profiles for GM review, oldest
// first so the queue drains in submission order.
func (a *ActivityController) ListPending(ctx *gin.Context) {
	var logs []models.ActivityLog
	if err := a.db.Preload("ActivityType").
		Where("status = ?", models.StatusPending).
		Order("created_at asc").
		Find(&logs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load pending logs")
		return
	}

	utils.Success(ctx, gin.H{"logs": logs})
}

// Approve marks a pending log approved and credits the owner's points in one
// transaction. Re-approving an already approved log is a no-op success so a
// double click never double-credits.
func (a *ActivityController) Approve(ctx *gin.Context) {
	type request struct {
		LogID uint `json:"log_id" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "log_id je obavezan")
		return
	}

	var log models.ActivityLog
	if err := a.db.Preload("ActivityType").First(&log, req.LogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "Zapis ne postoji.")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load activity log")
		return
	}

	if log.Status == models.StatusApproved {
		var stats models.Stats
		a.db.Where("profile_id = ?", log.ProfileID).First(&stats)
		utils.Success(ctx, gin.H{"message": "Već odobreno.", "added": 0, "new_total": stats.TotalPoints})
		return
	}

	delta := log.ActivityType.PointsDelta()

	var newTotal int
	lost := false
	err := a.db.Transaction(func(tx *gorm.DB) error {
		// Conditional flip: exactly one approver wins, the rest see zero
		// rows affected.
		res := tx.Model(&models.ActivityLog{}).
			Where("id = ? AND status = ?", log.ID, models.StatusPending).
			Update("status", models.StatusApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			lost = true
			return readTotal(tx, log.ProfileID, &newTotal)
		}

		if err := tx.Model(&models.Stats{}).
			Where("profile_id = ?", log.ProfileID).
			Updates(map[string]interface{}{
				"total_points": gorm.Expr("total_points + ?", delta),
				"updated_at":   time.Now(),
			}).Error; err != nil {
			return err
		}

		return readTotal(tx, log.ProfileID, &newTotal)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to approve activity log")
		return
	}

	if lost {
		utils.Success(ctx, gin.H{"message": "Već odobreno.", "added": 0, "new_total": newTotal})
		return
	}

	utils.Success(ctx, gin.H{"message": "Odobreno.", "added": delta, "new_total": newTotal})
}

func readTotal(tx *gorm.DB, profileID uint, out *int) error {
	var stats models.Stats
	if err := tx.Where("profile_id = ?", profileID).First(&stats).Error; err != nil {
		return err
	}
	*out = stats.TotalPoints
	return nil
}
