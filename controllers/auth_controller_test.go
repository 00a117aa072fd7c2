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
	"github.com/zmagaj/questlog/utils"
)

func newAuthRouter(db *gorm.DB) *gin.Engine {
	ac := NewAuthController(db)
	r := gin.New()
	r.POST("/signup", ac.Signup)
	r.POST("/login", ac.Login)
	r.POST("/logout", ac.Logout)
	r.GET("/me", middleware.AuthOptional(), ac.Me)
	return r
}

func TestSignupDuplicateUsername(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	w, _ := doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "mara", "password": "lozinka123"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "mara", "password": "druga123"}, "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Korisničko ime je zauzeto.", env.Message)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "mara").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFirstProfileBecomesGM(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	w, _ := doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "prvi", "password": "lozinka123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "drugi", "password": "lozinka123"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var first, second models.Profile
	require.NoError(t, db.Joins("JOIN users ON users.id = profiles.auth_id").
		Where("users.username = ?", "prvi").First(&first).Error)
	require.NoError(t, db.Joins("JOIN users ON users.id = profiles.auth_id").
		Where("users.username = ?", "drugi").First(&second).Error)

	require.Equal(t, models.RoleGM, first.Role)
	require.Equal(t, models.RoleHero, second.Role)

	// The credential follows the profile promotion so session tokens carry GM.
	var firstUser models.User
	require.NoError(t, db.Where("username = ?", "prvi").First(&firstUser).Error)
	require.Equal(t, models.RoleGM, firstUser.Role)

	// Both profiles start with a zeroed stats row.
	require.Zero(t, totalPoints(t, db, first.ID))
	require.Zero(t, totalPoints(t, db, second.ID))
}

func TestLoginSetsSessionCookie(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "mara", "password": "lozinka123"}, "")

	w, env := doJSON(t, r, http.MethodPost, "/login", gin.H{"username": "mara", "password": "lozinka123"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "login must set the session cookie")
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.False(t, cookie.Secure, "Secure is off outside production")

	var user models.User
	require.NoError(t, db.Where("username = ?", "mara").First(&user).Error)

	claims, err := utils.ParseToken(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "mara", claims.Username)

	var payload struct {
		User struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, user.ID, payload.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	doJSON(t, r, http.MethodPost, "/signup", gin.H{"username": "mara", "password": "lozinka123"}, "")

	w, env := doJSON(t, r, http.MethodPost, "/login", gin.H{"username": "mara", "password": "kriva"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Pogrešno korisničko ime ili lozinka.", env.Message)
	for _, c := range w.Result().Cookies() {
		require.NotEqual(t, middleware.SessionCookieName, c.Name, "no session cookie on failed login")
	}

	// Unknown user gets the same answer as a wrong password.
	w, env = doJSON(t, r, http.MethodPost, "/login", gin.H{"username": "nitko", "password": "lozinka123"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Pogrešno korisničko ime ili lozinka.", env.Message)
}

func TestMeFailsOpen(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	w, env := doJSON(t, r, http.MethodGet, "/me", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		User json.RawMessage `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "null", string(payload.User))

	// A garbage token behaves like no token at all.
	w, env = doJSON(t, r, http.MethodGet, "/me", nil, "not-a-token")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "null", string(payload.User))
}

func TestMeReturnsSessionIdentity(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	user, _ := seedUser(t, db, "mara", models.RoleHero)

	w, env := doJSON(t, r, http.MethodGet, "/me", nil, sessionFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		User struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, user.ID, payload.User.ID)
	require.Equal(t, models.RoleHero, payload.User.Role)
}

func TestLoginBootstrapsMissingProfile(t *testing.T) {
	db := testutil.NewAppDB(t)
	r := newAuthRouter(db)

	// A credential without a profile, as left behind by an interrupted signup.
	hash, err := utils.HashPassword("lozinka123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Username: "mara", PasswordHash: hash, DisplayName: "mara", Role: models.RoleHero,
	}).Error)

	w, _ := doJSON(t, r, http.MethodPost, "/login", gin.H{"username": "mara", "password": "lozinka123"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var profile models.Profile
	require.NoError(t, db.Joins("JOIN users ON users.id = profiles.auth_id").
		Where("users.username = ?", "mara").First(&profile).Error)
	require.Zero(t, totalPoints(t, db, profile.ID))
}
