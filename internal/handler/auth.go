package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/greenli8/idea-validator/internal/config"
	"github.com/greenli8/idea-validator/internal/model"
	"github.com/greenli8/idea-validator/internal/queue"
	"github.com/greenli8/idea-validator/internal/repository"
	"github.com/greenli8/idea-validator/internal/utils"
)

// googleUserInfoURL verifies opaque Google access tokens. The OAuth handshake
// itself happens on the frontend; the backend only exchanges the resulting
// token for a verified identity.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// AuthHandler bundles dependencies for signup, login and Google OAuth login.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type signupReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type googleReq struct {
	Token string `json:"token"`
}

type userPart struct {
	ID          uint64            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	IsPro       bool              `json:"isPro"`
	Credits     int               `json:"credits"`
	Preferences model.Preferences `json:"preferences"`
	CreatedAt   time.Time         `json:"createdAt"`
}
type authResp struct {
	User      userPart `json:"user"`
	Token     string   `json:"token"`
	IsNewUser bool     `json:"isNewUser,omitempty"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsPro:       u.IsPro,
		Credits:     u.Credits,
		Preferences: u.Preferences,
		CreatedAt:   u.CreatedAt,
	}
}

// Signup: create account with the starting credit grant and return a token
// immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required", "code": CodeValidation})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters", "code": CodeValidation})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, strings.TrimSpace(req.Name), "", h.Cfg.SignupCredits, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already exists", "code": CodeEmailExists})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed", "code": CodeInternal})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.IsPro, h.Cfg.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed", "code": CodeInternal})
	}

	h.publishSignedUp(u, "password")
	return c.JSON(http.StatusCreated, authResp{User: toUserPart(u), Token: access.Token})
}

// Login: verify credentials and return a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": CodeValidation})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required", "code": CodeValidation})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed", "code": CodeInternal})
	}
	// OAuth-only accounts have no password hash; treat them the same as a
	// wrong password so login probing cannot distinguish account types.
	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.IsPro, h.Cfg.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed", "code": CodeInternal})
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), Token: access.Token})
}

// GoogleLogin: exchange a Google access token for a session, creating or
// linking the account as needed. New accounts get the same starting credit
// grant as password signups.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req googleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "google token required", "code": CodeValidation})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	info, err := fetchGoogleUserInfo(ctx, req.Token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid google token"})
	}

	isNew := false
	u, err := h.Users.GetByEmail(ctx, info.Email)
	switch {
	case err == sql.ErrNoRows:
		isNew = true
		u, err = h.Users.Create(ctx, info.Email, "", info.Name, info.Sub, h.Cfg.SignupCredits, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed", "code": CodeInternal})
		}
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed", "code": CodeInternal})
	case u.GoogleID == "":
		if err := h.Users.LinkGoogle(ctx, u.ID, info.Sub); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link account failed", "code": CodeInternal})
		}
		u.GoogleID = info.Sub
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.IsPro, h.Cfg.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed", "code": CodeInternal})
	}

	if isNew {
		h.publishSignedUp(u, "google")
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), Token: access.Token, IsNewUser: isNew})
}

func (h *AuthHandler) publishSignedUp(u model.User, via string) {
	ev := queue.UserSignedUpEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Credits:   u.Credits,
		Via:       via,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	// Fire-and-forget off the request path; publish errors are logged inside.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.Publish(ctx, queue.QueueUserSignedUp, ev)
	}()
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func fetchGoogleUserInfo(ctx context.Context, token string) (googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	if info.Email == "" {
		return googleUserInfo{}, fmt.Errorf("userinfo missing email")
	}
	info.Email = strings.ToLower(info.Email)
	return info, nil
}
