package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernwiki/fern/middleware"
	"github.com/fernwiki/fern/models"
	"github.com/fernwiki/fern/users"
	"github.com/fernwiki/fern/utils"
)

const tokenLifetime = 72 * time.Hour

// AuthController handles registration, login, logout and profile management.
type AuthController struct {
	users *users.Store
}

// NewAuthController creates an AuthController.
func NewAuthController(store *users.Store) *AuthController {
	return &AuthController{users: store}
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FName    string `json:"fname"`
	LName    string `json:"lname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Active   bool   `json:"active"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		FName:    u.FName,
		LName:    u.LName,
		Email:    u.Email,
		Phone:    u.Phone,
		Active:   u.Active,
	}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required,min=2,max=32"`
		Password string `json:"password" binding:"required,min=6,max=64"`
		Confirm  string `json:"confirm"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "username may only contain letters, digits and '-'")
		return
	}
	if req.Confirm != "" && req.Confirm != req.Password {
		utils.Error(ctx, http.StatusBadRequest, 40012, "passwords do not match")
		return
	}

	user, err := a.users.Create(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrDuplicateUser) {
			utils.Error(ctx, http.StatusConflict, 40910, "username already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create user")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "account created", toUserResponse(user))
}

// Login validates credentials and issues a JWT. The authenticated flag is
// persisted so profile views reflect login state.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid request payload")
		return
	}

	user, err := a.users.Get(strings.TrimSpace(req.Username))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load user")
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) || !user.Active {
		// One message for all failure modes; do not reveal which field was wrong.
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to issue token")
		return
	}
	if err := a.users.SetAuthenticated(user, true); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to update login state")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": toUserResponse(user)})
}

// Logout revokes the presented token and clears the authenticated flag.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token != "" {
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}

	username := ctx.GetString(middleware.ContextUsernameKey)
	if user, err := a.users.Get(username); err == nil && user != nil {
		_ = a.users.SetAuthenticated(user, false)
	}

	utils.Respond(ctx, http.StatusOK, 0, "logout successful", nil)
}

// Me returns the authenticated user's own profile.
func (a *AuthController) Me(ctx *gin.Context) {
	username := ctx.GetString(middleware.ContextUsernameKey)
	user, err := a.users.GetOrFail(username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load user")
		return
	}
	utils.Success(ctx, toUserResponse(user))
}

// GetUserPublicByUsername returns a user's public profile, cached for an hour.
func (a *AuthController) GetUserPublicByUsername(ctx *gin.Context) {
	uname := strings.TrimSpace(ctx.Param("username"))
	if uname == "" {
		utils.Error(ctx, http.StatusBadRequest, 40014, "missing username")
		return
	}
	if b, ok := utils.CacheGetBytes("cache:user:public:" + uname); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	user, err := a.users.GetOrFail(uname)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40421, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load user")
		return
	}

	payload := toUserResponse(user)
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON("cache:user:public:"+uname, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// UpdateProfile edits the caller's profile. A username change is a rekey done
// transactionally in the store; the response carries a fresh token because the
// old one embeds the old username.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	type request struct {
		FName    string `json:"fname"`
		LName    string `json:"lname"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40015, "invalid request payload")
		return
	}

	username := ctx.GetString(middleware.ContextUsernameKey)
	user, err := a.users.GetOrFail(username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40422, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load user")
		return
	}

	if err := a.users.UpdateProfile(user,
		strings.TrimSpace(utils.StripHTML(req.FName)),
		strings.TrimSpace(utils.StripHTML(req.LName)),
		strings.TrimSpace(utils.StripHTML(req.Email)),
		strings.TrimSpace(utils.StripHTML(req.Phone)),
	); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to update profile")
		return
	}

	token := ""
	if newName := strings.TrimSpace(req.Username); newName != "" && newName != user.Username {
		if !validUsername(newName) {
			utils.Error(ctx, http.StatusBadRequest, 40016, "username may only contain letters, digits and '-'")
			return
		}
		if err := a.users.Rename(user, newName); err != nil {
			if errors.Is(err, users.ErrDuplicateUser) {
				utils.Error(ctx, http.StatusConflict, 40911, "username already exists")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to rename user")
			return
		}
		if token, err = utils.GenerateToken(user.ID, user.Username, tokenLifetime); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to issue token")
			return
		}
	}

	if req.Password != "" {
		if len(req.Password) < 6 {
			utils.Error(ctx, http.StatusBadRequest, 40017, "password too short")
			return
		}
		if err := a.users.UpdatePassword(user, req.Password); err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to update password")
			return
		}
	}

	utils.InvalidateByPrefix("cache:user:public:")
	resp := gin.H{"user": toUserResponse(user)}
	if token != "" {
		resp["token"] = token
	}
	utils.Respond(ctx, http.StatusOK, 0, "profile updated", resp)
}

func validUsername(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			continue
		}
		return false
	}
	return true
}
