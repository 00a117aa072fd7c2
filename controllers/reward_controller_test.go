package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/middleware"
	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/testutil"
)

func newRewardRouter(db *gorm.DB) *gin.Engine {
	rc := NewRewardController(db)
	r := gin.New()
	// Mounted like production: the handler resolves the session when present
	// or the legacy auth_id body field when not.
	r.POST("/rewards/redeem", middleware.AuthOptional(), rc.Redeem)
	r.POST("/rewards", middleware.AuthRequired(), middleware.RequireGM(), rc.CreateReward)
	r.GET("/redemptions/mine", middleware.AuthRequired(), rc.ListMyRedemptions)
	return r
}

func seedReward(t *testing.T, db *gorm.DB, title string, cost int) *models.Reward {
	t.Helper()
	reward := &models.Reward{Title: title, Cost: cost}
	require.NoError(t, db.Create(reward).Error)
	return reward
}

func TestRedeemDebitsBalance(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	hero, profile := seedUser(t, db, "junak", models.RoleHero)
	setPoints(t, db, profile.ID, 30)
	reward := seedReward(t, db, "Kino", 25)

	w, env := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"reward_id": reward.ID}, sessionFor(t, hero))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Message   string `json:"message"`
		Remaining int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, 5, payload.Remaining)
	require.Contains(t, payload.Message, "Kino")

	require.Equal(t, 5, totalPoints(t, db, profile.ID))

	var redemption models.Redemption
	require.NoError(t, db.Where("profile_id = ?", profile.ID).First(&redemption).Error)
	require.Equal(t, reward.ID, redemption.RewardID)
	require.Equal(t, 25, redemption.CostPaid)
}

func TestRedeemInsufficientBalance(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	hero, profile := seedUser(t, db, "junak", models.RoleHero)
	setPoints(t, db, profile.ID, 10)
	reward := seedReward(t, db, "Kino", 25)

	w, env := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"reward_id": reward.ID}, sessionFor(t, hero))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Nedovoljno bodova", env.Message)

	// Nothing was charged and nothing was recorded.
	require.Equal(t, 10, totalPoints(t, db, profile.ID))
	var count int64
	require.NoError(t, db.Model(&models.Redemption{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRedeemExactBalance(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	hero, profile := seedUser(t, db, "junak", models.RoleHero)
	setPoints(t, db, profile.ID, 25)
	reward := seedReward(t, db, "Kino", 25)

	w, _ := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"reward_id": reward.ID}, sessionFor(t, hero))
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, totalPoints(t, db, profile.ID))
}

func TestRedeemUnknownReward(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	hero, _ := seedUser(t, db, "junak", models.RoleHero)

	w, env := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"reward_id": 999}, sessionFor(t, hero))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Nagrada ne postoji.", env.Message)
}

func TestRedeemLegacyAuthID(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	hero, profile := seedUser(t, db, "junak", models.RoleHero)
	setPoints(t, db, profile.ID, 30)
	reward := seedReward(t, db, "Kino", 25)

	w, env := doJSON(t, r, http.MethodPost, "/rewards/redeem",
		gin.H{"reward_id": reward.ID, "auth_id": hero.ID}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Remaining int `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, 5, payload.Remaining)
}

func TestRedeemNoSessionNoAuthID(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	reward := seedReward(t, db, "Kino", 25)

	w, env := doJSON(t, r, http.MethodPost, "/rewards/redeem", gin.H{"reward_id": reward.ID}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Nisi prijavljen.", env.Message)
}

func TestCreateReward(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	gm, _ := seedUser(t, db, "gazda", models.RoleGM)
	hero, _ := seedUser(t, db, "junak", models.RoleHero)

	w, env := doJSON(t, r, http.MethodPost, "/rewards",
		gin.H{"title": "Kino", "description": "Večer u kinu", "cost": 25}, sessionFor(t, gm))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Reward models.Reward `json:"reward"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.NotZero(t, payload.Reward.ID)
	require.Equal(t, 25, payload.Reward.Cost)

	// Cost must be positive.
	w, _ = doJSON(t, r, http.MethodPost, "/rewards", gin.H{"title": "Gratis", "cost": 0}, sessionFor(t, gm))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/rewards", gin.H{"title": "Kino", "cost": 25}, sessionFor(t, hero))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestListMyRedemptions(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newRewardRouter(db)

	hero, profile := seedUser(t, db, "junak", models.RoleHero)
	_, otherProfile := seedUser(t, db, "drugi", models.RoleHero)
	reward := seedReward(t, db, "Kino", 25)

	require.NoError(t, db.Create(&models.Redemption{ProfileID: profile.ID, RewardID: reward.ID, CostPaid: 25, Status: "approved"}).Error)
	require.NoError(t, db.Create(&models.Redemption{ProfileID: otherProfile.ID, RewardID: reward.ID, CostPaid: 25, Status: "approved"}).Error)

	w, env := doJSON(t, r, http.MethodGet, "/redemptions/mine", nil, sessionFor(t, hero))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Redemptions []models.Redemption `json:"redemptions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Len(t, payload.Redemptions, 1)
	require.Equal(t, profile.ID, payload.Redemptions[0].ProfileID)
}
