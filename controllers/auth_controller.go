package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zmagaj/questlog/config"
	"github.com/zmagaj/questlog/middleware"
	"github.com/zmagaj/questlog/models"
	"github.com/zmagaj/questlog/utils"
)

// AuthController handles signup, login, logout and session introspection.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Signup creates a local credential with bcrypt hashing and bootstraps the
// application profile. Duplicate usernames return 409.
func (a *AuthController) Signup(ctx *gin.Context) {
	type request struct {
		Username    string `json:"username" binding:"required,min=2,max=64"`
		Password    string `json:"password" binding:"required,min=6"`
		DisplayName string `json:"display_name"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "korisničko ime i lozinka su obavezni")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "korisničko ime i lozinka su obavezni")
		return
	}

	// Anti-abuse: per-IP cooldown and daily cap (fails open without Redis).
	ip := ctx.ClientIP()
	if !utils.SignupCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "Prebrzo. Pokušaj opet za koji trenutak.")
		return
	}
	if !utils.SignupDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42911, "Dnevni limit registracija je dosegnut.")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "Korisničko ime je zauzeto.")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         models.RoleHero,
	}

	if err := a.db.Create(&user).Error; err != nil {
		// The unique index is authoritative; the pre-check above only covers
		// the common case.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "Korisničko ime je zauzeto.")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.SignupDailyIncrement(ip)

	// Best-effort profile bootstrap; login repeats it, so a failure here is
	// logged but not fatal to the signup.
	if _, err := a.ensureProfile(&user); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("signup: profile bootstrap for %s failed: %v", user.Username, err)
	}

	utils.Success(ctx, gin.H{
		"user": gin.H{"id": user.ID, "username": user.Username, "role": user.Role},
	})
}

// Login verifies credentials, bootstraps the profile when missing and sets
// the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "korisničko ime i lozinka su obavezni")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "Pogrešno korisničko ime ili lozinka.")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "Pogrešno korisničko ime ili lozinka.")
		return
	}

	if _, err := a.ensureProfile(&user); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to prepare profile")
		return
	}

	cfg := config.Get()
	ttl := time.Duration(cfg.SessionTTLSeconds) * time.Second
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	setSessionCookie(ctx, token, cfg.SessionTTLSeconds)

	utils.Success(ctx, gin.H{
		"user": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"role":         user.Role,
			"display_name": user.DisplayName,
		},
	})
}

// Logout clears the session cookie and blacklists the token until expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	if tokenString, err := ctx.Cookie(middleware.SessionCookieName); err == nil && tokenString != "" {
		expiresAt := time.Now().Add(time.Duration(config.Get().SessionTTLSeconds) * time.Second)
		if claims, err := utils.ParseToken(tokenString); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(tokenString, expiresAt)
	}

	setSessionCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"message": "odjavljen"})
}

// Me reports the session identity. It never fails: a missing, malformed or
// expired token yields {"user": null}.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Success(ctx, gin.H{"user": nil})
		return
	}

	utils.Success(ctx, gin.H{
		"user": gin.H{
			"id":       userID,
			"username": ctx.GetString(middleware.ContextUsernameKey),
			"role":     ctx.GetString(middleware.ContextRoleKey),
		},
	})
}

// ensureProfile makes sure the credential has an application profile and a
// zeroed stats row. The very first profile system-wide gets the GM role; the
// unique index on auth_id resolves concurrent bootstraps of one credential.
func (a *AuthController) ensureProfile(user *models.User) (*models.Profile, error) {
	var profile models.Profile
	err := a.db.Where("auth_id = ?", user.ID).First(&profile).Error
	if err == nil {
		return &profile, a.ensureStats(profile.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		profile = models.Profile{
			AuthID:      user.ID,
			DisplayName: user.DisplayName,
			Role:        user.Role,
		}
		if err := tx.Create(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost a concurrent bootstrap of the same credential.
				return tx.Where("auth_id = ?", user.ID).First(&profile).Error
			}
			return err
		}

		if err := tx.Create(&models.Stats{ProfileID: profile.ID}).Error; err != nil {
			return err
		}

		// Claim the GM seat with a single conditional write: the update only
		// lands while no GM profile exists, so at most one claim can win.
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND NOT EXISTS (SELECT 1 FROM profiles p WHERE p.role = ?)",
				profile.ID, models.RoleGM).
			Update("role", models.RoleGM)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			profile.Role = models.RoleGM
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Promote the credential so future session tokens carry the GM role.
	if profile.Role == models.RoleGM && user.Role != models.RoleGM {
		user.Role = models.RoleGM
		if err := a.db.Model(user).Update("role", models.RoleGM).Error; err != nil {
			return nil, err
		}
	}

	return &profile, nil
}

func (a *AuthController) ensureStats(profileID uint) error {
	var stats models.Stats
	err := a.db.Where("profile_id = ?", profileID).First(&stats).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := a.db.Create(&models.Stats{ProfileID: profileID}).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}

// setSessionCookie writes the session cookie per product policy: HttpOnly,
// SameSite=Lax, Secure only in production.
func setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookieName, token, maxAge, "/", "", cfg.IsProduction(), true)
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isGM(ctx *gin.Context) bool {
	return ctx.GetString(middleware.ContextRoleKey) == models.RoleGM
}

// currentProfile resolves the caller's application profile from the session
// identity stored in context.
func currentProfile(db *gorm.DB, ctx *gin.Context) (*models.Profile, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		return nil, false
	}
	var profile models.Profile
	if err := db.Where("auth_id = ?", userID).First(&profile).Error; err != nil {
		return nil, false
	}
	return &profile, true
}
