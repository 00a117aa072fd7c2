package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/middleware"
	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/testutil"
)

func newActivityRouter(db *gorm.DB) *gin.Engine {
	ac := NewActivityController(db)
	r := gin.New()
	r.POST("/activities", middleware.AuthRequired(), ac.Create)
	r.GET("/activities/mine", middleware.AuthRequired(), ac.ListMine)
	r.GET("/activities/pending", middleware.AuthRequired(), middleware.RequireGM(), ac.ListPending)
	r.POST("/activities/approve", middleware.AuthRequired(), middleware.RequireGM(), ac.Approve)
	r.POST("/activity-types", middleware.AuthRequired(), middleware.RequireGM(), ac.CreateType)
	return r
}

func seedType(t *testing.T, db *gorm.DB, name string, base int, negative bool) *models.ActivityType {
	t.Helper()
	at := &models.ActivityType{Name: name, BasePoints: base, Negative: negative}
	require.NoError(t, db.Create(at).Error)
	return at
}

func TestCreateActivityType(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	gm, _ := seedUser(t, db, "gazda", models.RoleGM)
	hero, _ := seedUser(t, db, "junak", models.RoleHero)

	w, env := doJSON(t, r, http.MethodPost, "/activity-types",
		gin.H{"name": "Trening", "base_points": 5}, sessionFor(t, gm))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Type models.ActivityType `json:"type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.NotZero(t, payload.Type.ID)
	require.Equal(t, 5, payload.Type.BasePoints)

	w, _ = doJSON(t, r, http.MethodPost, "/activity-types", gin.H{"base_points": 5}, sessionFor(t, gm))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/activity-types", gin.H{"name": "Trening"}, sessionFor(t, hero))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateActivityStartsPending(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	hero, profile := seedUser(t, db, "junak", models.RoleHero)
	trening := seedType(t, db, "Trening", 5, false)

	w, _ := doJSON(t, r, http.MethodPost, "/activities",
		gin.H{"activity_type_id": trening.ID, "note": "30 min"}, sessionFor(t, hero))
	require.Equal(t, http.StatusOK, w.Code)

	var log models.ActivityLog
	require.NoError(t, db.Where("profile_id = ?", profile.ID).First(&log).Error)
	require.Equal(t, models.StatusPending, log.Status)
	require.Zero(t, totalPoints(t, db, profile.ID), "pending logs must not move points")
}

func TestCreateActivityUnknownType(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	hero, _ := seedUser(t, db, "junak", models.RoleHero)

	w, env := doJSON(t, r, http.MethodPost, "/activities",
		gin.H{"activity_type_id": 999}, sessionFor(t, hero))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Nepoznata aktivnost.", env.Message)
}

func TestCreateActivityRequiresSession(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	w, env := doJSON(t, r, http.MethodPost, "/activities", gin.H{"activity_type_id": 1}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Nisi prijavljen.", env.Message)
}

func TestApproveCreditsOnce(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	gm, _ := seedUser(t, db, "gazda", models.RoleGM)
	_, heroProfile := seedUser(t, db, "junak", models.RoleHero)
	trening := seedType(t, db, "Trening", 5, false)

	log := &models.ActivityLog{ProfileID: heroProfile.ID, ActivityTypeID: trening.ID, Status: models.StatusPending}
	require.NoError(t, db.Create(log).Error)

	w, env := doJSON(t, r, http.MethodPost, "/activities/approve", gin.H{"log_id": log.ID}, sessionFor(t, gm))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Message  string `json:"message"`
		Added    int    `json:"added"`
		NewTotal int    `json:"new_total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, 5, payload.Added)
	require.Equal(t, 5, payload.NewTotal)

	// Approving again acknowledges without crediting a second time.
	w, env = doJSON(t, r, http.MethodPost, "/activities/approve", gin.H{"log_id": log.ID}, sessionFor(t, gm))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "Već odobreno.", payload.Message)
	require.Zero(t, payload.Added)
	require.Equal(t, 5, payload.NewTotal)

	require.Equal(t, 5, totalPoints(t, db, heroProfile.ID))
}

func TestApproveNegativeTypeDebits(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	gm, _ := seedUser(t, db, "gazda", models.RoleGM)
	_, heroProfile := seedUser(t, db, "junak", models.RoleHero)
	setPoints(t, db, heroProfile.ID, 20)

	// Negative types subtract their magnitude even when stored positive.
	kazna := seedType(t, db, "Propušten trening", 8, true)

	log := &models.ActivityLog{ProfileID: heroProfile.ID, ActivityTypeID: kazna.ID, Status: models.StatusPending}
	require.NoError(t, db.Create(log).Error)

	w, env := doJSON(t, r, http.MethodPost, "/activities/approve", gin.H{"log_id": log.ID}, sessionFor(t, gm))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Added    int `json:"added"`
		NewTotal int `json:"new_total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, -8, payload.Added)
	require.Equal(t, 12, payload.NewTotal)
}

func TestApproveRequiresGM(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	hero, heroProfile := seedUser(t, db, "junak", models.RoleHero)
	trening := seedType(t, db, "Trening", 5, false)
	log := &models.ActivityLog{ProfileID: heroProfile.ID, ActivityTypeID: trening.ID, Status: models.StatusPending}
	require.NoError(t, db.Create(log).Error)

	w, env := doJSON(t, r, http.MethodPost, "/activities/approve", gin.H{"log_id": log.ID}, sessionFor(t, hero))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Nemaš ovlasti.", env.Message)

	var reloaded models.ActivityLog
	require.NoError(t, db.First(&reloaded, log.ID).Error)
	require.Equal(t, models.StatusPending, reloaded.Status)
}

func TestListPendingOrdersBySubmission(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newActivityRouter(db)

	gm, _ := seedUser(t, db, "gazda", models.RoleGM)
	_, heroProfile := seedUser(t, db, "junak", models.RoleHero)
	trening := seedType(t, db, "Trening", 5, false)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	first := &models.ActivityLog{ProfileID: heroProfile.ID, ActivityTypeID: trening.ID, Status: models.StatusPending, CreatedAt: base}
	require.NoError(t, db.Create(first).Error)
	approved := &models.ActivityLog{ProfileID: heroProfile.ID, ActivityTypeID: trening.ID, Status: models.StatusApproved, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, db.Create(approved).Error)
	second := &models.ActivityLog{ProfileID: heroProfile.ID, ActivityTypeID: trening.ID, Status: models.StatusPending, CreatedAt: base.Add(2 * time.Minute)}
	require.NoError(t, db.Create(second).Error)

	w, env := doJSON(t, r, http.MethodGet, "/activities/pending", nil, sessionFor(t, gm))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Logs []models.ActivityLog `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Len(t, payload.Logs, 2)
	require.Equal(t, first.ID, payload.Logs[0].ID)
	require.Equal(t, second.ID, payload.Logs[1].ID)
}
