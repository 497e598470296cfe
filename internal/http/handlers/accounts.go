package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"regexp"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	dbpkg "floofy/internal/db"
)

var validUsername = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "fl_" + base64.URLEncoding.EncodeToString(b), nil
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterUser creates a file-host account. New accounts feed the daily
// registrations metric via their CreatedAt column.
func RegisterUser(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload registerRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if !validUsername.MatchString(payload.Username) {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid username")
			return
		}
		if len(payload.Password) < 8 {
			errResponse(ctx, fasthttp.StatusBadRequest, "password must be at least 8 characters")
			return
		}

		var count int64
		if err := db.Model(&dbpkg.User{}).Where("username = ?", payload.Username).Count(&count).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if count > 0 {
			errResponse(ctx, fasthttp.StatusConflict, "username already taken")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}

		user := &dbpkg.User{
			Username:     payload.Username,
			PasswordHash: string(hash),
		}
		if err := db.Create(user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusConflict, "username already taken")
			return
		}

		accountsCreated.Inc()

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"id": user.ID, "username": user.Username})
	}
}

type createAPIKeyRequest struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
}

// CreateAPIKey mints an upload token for an account. Admin-only; the key
// value is returned exactly once in the response.
func CreateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload createAPIKeyRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.UserID == 0 || payload.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "user_id and name required")
			return
		}

		var user dbpkg.User
		if err := db.First(&user, payload.UserID).Error; err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "user not found")
			return
		}

		key, err := generateAPIKey()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to generate API key")
			return
		}

		apiKey := &dbpkg.APIKey{
			UserID: user.ID,
			Name:   payload.Name,
			Key:    key,
			Active: true,
		}
		if err := db.Create(apiKey).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create API key")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"id": apiKey.ID, "key": apiKey.Key, "name": apiKey.Name})
	}
}

// DeactivateAPIKey disables an upload token without deleting its history.
func DeactivateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.QueryArgs().Peek("id"))
		if id == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "id required")
			return
		}

		var apiKey dbpkg.APIKey
		if err := db.First(&apiKey, id).Error; err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "API key not found")
			return
		}

		if err := db.Model(&apiKey).Update("active", false).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update API key")
			return
		}
		jsonResponse(ctx, map[string]any{"id": apiKey.ID, "active": false})
	}
}
