package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/utils"
)

// passkeySessionTTL bounds how long a begin/finish ceremony may take.
const passkeySessionTTL = 5 * time.Minute

// PasskeyHandler implements WebAuthn credential registration and login.
// Ceremony session data is held in an in-process map keyed by an opaque
// session id returned to the client; entries expire after a few minutes.
type PasskeyHandler struct {
	WebAuthn *webauthn.WebAuthn
	Users    *repository.UserRepo
	Passkeys *repository.PasskeyRepo
	Auth     *AuthHandler

	mu       sync.Mutex
	sessions map[string]passkeySession
}

type passkeySession struct {
	userID  uint64
	data    webauthn.SessionData
	expires time.Time
}

func NewPasskeyHandler(wa *webauthn.WebAuthn, users *repository.UserRepo, pk *repository.PasskeyRepo, auth *AuthHandler) *PasskeyHandler {
	return &PasskeyHandler{
		WebAuthn: wa,
		Users:    users,
		Passkeys: pk,
		Auth:     auth,
		sessions: make(map[string]passkeySession),
	}
}

func (h *PasskeyHandler) putSession(userID uint64, data webauthn.SessionData) (string, error) {
	id, err := utils.RandomHex(16)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	for k, s := range h.sessions {
		if now.After(s.expires) {
			delete(h.sessions, k)
		}
	}
	h.sessions[id] = passkeySession{userID: userID, data: data, expires: now.Add(passkeySessionTTL)}
	return id, nil
}

func (h *PasskeyHandler) takeSession(id string) (passkeySession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	if !ok || time.Now().After(s.expires) {
		return passkeySession{}, false
	}
	return s, true
}

// passkeyUser adapts a user and their stored credentials to the webauthn
// library's User interface.  The WebAuthn user handle is the decimal user
// id, which FinishLogin parses back.
type passkeyUser struct {
	user  model.User
	creds []webauthn.Credential
}

func (p passkeyUser) WebAuthnID() []byte          { return []byte(strconv.FormatUint(p.user.ID, 10)) }
func (p passkeyUser) WebAuthnName() string        { return p.user.Email }
func (p passkeyUser) WebAuthnDisplayName() string { return p.user.Name }
func (p passkeyUser) WebAuthnCredentials() []webauthn.Credential {
	return p.creds
}

func (h *PasskeyHandler) loadPasskeyUser(c echo.Context, userID uint64) (passkeyUser, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return passkeyUser{}, err
	}
	stored, err := h.Passkeys.ListByUser(ctx, userID)
	if err != nil {
		return passkeyUser{}, err
	}
	creds := make([]webauthn.Credential, 0, len(stored))
	for _, s := range stored {
		var cred webauthn.Credential
		if err := json.Unmarshal(s.Credential, &cred); err != nil {
			continue
		}
		creds = append(creds, cred)
	}
	return passkeyUser{user: u, creds: creds}, nil
}

type finishReq struct {
	SessionID string          `json:"session_id"`
	Label     string          `json:"label"`
	Response  json.RawMessage `json:"response"`
}

// BeginRegistration starts a credential creation ceremony for the
// authenticated user.  Existing credentials are excluded so the client
// cannot register the same authenticator twice.
func (h *PasskeyHandler) BeginRegistration(c echo.Context) error {
	pu, err := h.loadPasskeyUser(c, getUserID(c))
	if err != nil {
		return errJSON(c, err, "load user failed")
	}

	opts := []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	}
	if len(pu.creds) > 0 {
		opts = append(opts, webauthn.WithExclusions(webauthn.Credentials(pu.creds).CredentialDescriptors()))
	}

	creation, session, err := h.WebAuthn.BeginRegistration(pu, opts...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin registration failed"})
	}
	sid, err := h.putSession(pu.user.ID, *session)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": sid, "options": creation})
}

// FinishRegistration validates the authenticator response and stores the
// new credential.
func (h *PasskeyHandler) FinishRegistration(c echo.Context) error {
	var req finishReq
	if err := c.Bind(&req); err != nil || req.SessionID == "" || len(req.Response) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id/response required"})
	}
	sess, ok := h.takeSession(req.SessionID)
	if !ok || sess.userID != getUserID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown or expired session"})
	}

	pu, err := h.loadPasskeyUser(c, sess.userID)
	if err != nil {
		return errJSON(c, err, "load user failed")
	}
	parsed, err := protocol.ParseCredentialCreationResponseBytes(req.Response)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credential response"})
	}
	cred, err := h.WebAuthn.CreateCredential(pu, sess.data, parsed)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "credential verification failed"})
	}

	blob, err := json.Marshal(cred)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode credential failed"})
	}
	credID := base64.RawURLEncoding.EncodeToString(cred.ID)
	label := req.Label
	if label == "" {
		label = "passkey"
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Passkeys.Create(ctx, sess.userID, credID, blob, label); err != nil {
		return errJSON(c, err, "store credential failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true})
}

// BeginLogin starts a discoverable (usernameless) login ceremony.
func (h *PasskeyHandler) BeginLogin(c echo.Context) error {
	assertion, session, err := h.WebAuthn.BeginDiscoverableLogin()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin login failed"})
	}
	sid, err := h.putSession(0, *session)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": sid, "options": assertion})
}

// FinishLogin validates the assertion, resolves the user from the
// credential's user handle and issues a token pair.
func (h *PasskeyHandler) FinishLogin(c echo.Context) error {
	var req finishReq
	if err := c.Bind(&req); err != nil || req.SessionID == "" || len(req.Response) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id/response required"})
	}
	sess, ok := h.takeSession(req.SessionID)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown or expired session"})
	}
	parsed, err := protocol.ParseCredentialRequestResponseBytes(req.Response)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid assertion response"})
	}

	var loggedIn model.User
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		uid, err := strconv.ParseUint(string(userHandle), 10, 64)
		if err != nil {
			// Some authenticators omit the user handle; resolve the
			// owner through the credential id instead.
			ctx, cancel := reqCtx(c)
			defer cancel()
			uid, err = h.Passkeys.GetUserByCredentialID(ctx, base64.RawURLEncoding.EncodeToString(rawID))
			if err != nil {
				return nil, err
			}
		}
		pu, err := h.loadPasskeyUser(c, uid)
		if err != nil {
			return nil, err
		}
		loggedIn = pu.user
		return pu, nil
	}
	cred, err := h.WebAuthn.ValidateDiscoverableLogin(handler, sess.data, parsed)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "passkey verification failed"})
	}
	if loggedIn.IsBanned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account banned"})
	}

	// Persist the updated sign counter.
	if blob, err := json.Marshal(cred); err == nil {
		ctx, cancel := reqCtx(c)
		defer cancel()
		_ = h.Passkeys.UpdateCredential(ctx, base64.RawURLEncoding.EncodeToString(cred.ID), blob)
	}
	return h.Auth.issuePair(c, loggedIn, http.StatusOK)
}

// ListCredentials returns the authenticated user's registered passkeys.
func (h *PasskeyHandler) ListCredentials(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	creds, err := h.Passkeys.ListByUser(ctx, getUserID(c))
	if err != nil {
		return errJSON(c, err, "list credentials failed")
	}
	out := make([]echo.Map, 0, len(creds))
	for _, cr := range creds {
		out = append(out, echo.Map{"id": cr.ID, "label": cr.Label, "created_at": cr.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"passkeys": out})
}

// DeleteCredential removes one of the user's passkeys.
func (h *PasskeyHandler) DeleteCredential(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Passkeys.Delete(ctx, id, getUserID(c)); err != nil {
		return errJSON(c, err, "delete credential failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
