package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/utils"
)

const rewardsCacheKey = "cache:rewards"

// RewardController handles the reward catalogue and redemptions.
type RewardController struct {
	db *gorm.DB
}

// NewRewardController creates a RewardController.
func NewRewardController(db *gorm.DB) *RewardController {
	return &RewardController{db: db}
}

// List returns the reward catalogue, cached since it changes rarely.
func (r *RewardController) List(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(rewardsCacheKey); ok {
		var cached []models.Reward
		if json.Unmarshal(b, &cached) == nil {
			utils.Success(ctx, gin.H{"rewards": cached})
			return
		}
	}

	var rewards []models.Reward
	if err := r.db.Order("cost asc").Find(&rewards).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load rewards")
		return
	}

	utils.CacheSetJSON(rewardsCacheKey, rewards, 5*time.Minute)
	utils.Success(ctx, gin.H{"rewards": rewards})
}

// CreateReward adds a reward to the catalogue and drops the cached copy.
func (r *RewardController) CreateReward(ctx *gin.Context) {
	type request struct {
		Title       string `json:"title" binding:"required,max=128"`
		Description string `json:"description"`
		Cost        int    `json:"cost" binding:"required,min=1"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "title i cost (> 0) su obavezni")
		return
	}

	reward := models.Reward{
		Title:       req.Title,
		Description: req.Description,
		Cost:        req.Cost,
	}
	if err := r.db.Create(&reward).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to create reward")
		return
	}

	utils.InvalidateByPrefix(rewardsCacheKey)
	utils.Success(ctx, gin.H{"reward": reward})
}

// Redeem spends points for a reward. The debit is a single conditional
// update, so a balance can never go negative no matter how many requests
// race. The caller is normally the session profile; the legacy body field
// auth_id is still honoured for old clients without a session.
func (r *RewardController) Redeem(ctx *gin.Context) {
	type request struct {
		RewardID uint `json:"reward_id" binding:"required"`
		AuthID   uint `json:"auth_id"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "reward_id je obavezan")
		return
	}

	profile, ok := currentProfile(r.db, ctx)
	if !ok && req.AuthID != 0 {
		var legacy models.Profile
		if err := r.db.Where("auth_id = ?", req.AuthID).First(&legacy).Error; err == nil {
			profile, ok = &legacy, true
		}
	}
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var reward models.Reward
	if err := r.db.First(&reward, req.RewardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "Nagrada ne postoji.")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load reward")
		return
	}

	var remaining int
	insufficient := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Debit only when the balance covers the cost; zero rows affected
		// means it does not and nothing was charged.
		res := tx.Model(&models.Stats{}).
			Where("profile_id = ? AND total_points >= ?", profile.ID, reward.Cost).
			Updates(map[string]interface{}{
				"total_points": gorm.Expr("total_points - ?", reward.Cost),
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			insufficient = true
			return nil
		}

		if err := tx.Create(&models.Redemption{
			ProfileID: profile.ID,
			RewardID:  reward.ID,
			CostPaid:  reward.Cost,
			Status:    "approved",
		}).Error; err != nil {
			return err
		}

		return readTotal(tx, profile.ID, &remaining)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to redeem reward")
		return
	}
	if insufficient {
		utils.Error(ctx, http.StatusBadRequest, 40021, "Nedovoljno bodova")
		return
	}

	utils.Success(ctx, gin.H{
		"message":   fmt.Sprintf("Iskorišteno: %s", reward.Title),
		"remaining": remaining,
	})
}

// ListMyRedemptions returns the caller's redemption history, newest first.
func (r *RewardController) ListMyRedemptions(ctx *gin.Context) {
	profile, ok := currentProfile(r.db, ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "Nisi prijavljen.")
		return
	}

	var redemptions []models.Redemption
	if err := r.db.Preload("Reward").
		Where("profile_id = ?", profile.ID).
		Order("created_at desc").
		Limit(100).
		Find(&redemptions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load redemptions")
		return
	}

	utils.Success(ctx, gin.H{"redemptions": redemptions})
}
