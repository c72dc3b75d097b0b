package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/internal/auth"
	"github.com/titanbreach/engine/internal/broadcast"
	"github.com/titanbreach/engine/internal/capture"
	"github.com/titanbreach/engine/internal/location"
	"github.com/titanbreach/engine/internal/poi"
	"github.com/titanbreach/engine/internal/pvp"
	"github.com/titanbreach/engine/pkg/models"
)

// maxMapRadiusMeters caps a single titans-near-me query (spec §6.1).
const maxMapRadiusMeters = 50_000

// PlayerStore is the player-identity persistence surface handlers need
// directly (everything else goes through a domain service).
type PlayerStore interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetOrCreatePlayerByWallet(ctx context.Context, wallet string) (*models.Player, error)
}

// TitanMapStore is the titan-lookup surface the map endpoint needs.
type TitanMapStore interface {
	TitansNear(ctx context.Context, lat, lng, radiusM float64, now time.Time) ([]models.TitanSpawn, error)
}

// Deps bundles every dependency the HTTP layer needs; it is the thinnest
// possible adapter over C1-C9's already-built services.
type Deps struct {
	Players  PlayerStore
	Titans   TitanMapStore
	POIs     *poi.Cache
	Location *location.Verifier
	Capture  *capture.Broker
	Pvp      *pvp.Service
	Sessions auth.SessionStore
	Hub      *broadcast.Hub
	Log      *zap.Logger

	SessionTTL time.Duration
}

func playerIDFromContext(c *gin.Context) uuid.UUID {
	v, _ := c.Get(playerIDContextKey)
	id, _ := v.(uuid.UUID)
	return id
}

// ── auth ─────────────────────────────────────────────────────────────

type challengeRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// handleAuthChallenge is POST /auth/challenge. Issuing and verifying the
// actual wallet signature is an external collaborator's job; this core
// only needs to produce a message/nonce pair for the client to sign.
func (d *Deps) handleAuthChallenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "wallet_address is required"))
		return
	}

	nonce := uuid.NewString()
	expiresAt := time.Now().Add(5 * time.Minute)
	c.JSON(http.StatusOK, gin.H{
		"message":    "BREACH login: " + nonce,
		"nonce":      nonce,
		"expires_at": expiresAt,
	})
}

type authenticateRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Message       string `json:"message" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

// handleAuthenticate is POST /auth/authenticate. Cryptographic signature
// verification lives outside the core (spec.md's explicit auth-primitives
// exclusion); this handler trusts the caller already performed it and
// mints a session for the claimed wallet.
func (d *Deps) handleAuthenticate(c *gin.Context) {
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "wallet_address, message, and signature are required"))
		return
	}

	player, err := d.Players.GetOrCreatePlayerByWallet(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	token, sess, err := d.Sessions.Create(c.Request.Context(), player.ID, req.WalletAddress, d.SessionTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"player_id":  player.ID,
	})
}

// ── map ──────────────────────────────────────────────────────────────

// handleMapTitans is GET /map/titans?lat&lng&radius.
func (d *Deps) handleMapTitans(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "lat is required and must be numeric"))
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "lng is required and must be numeric"))
		return
	}
	radius := maxMapRadiusMeters
	if r := c.Query("radius"); r != "" {
		if parsed, err := strconv.Atoi(r); err == nil {
			radius = parsed
		}
	}
	if radius > maxMapRadiusMeters {
		radius = maxMapRadiusMeters
	}

	spawns, err := d.Titans.TitansNear(c.Request.Context(), lat, lng, float64(radius), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spawns)
}

// handleMapPOIs is GET /map/pois?bounds=sw_lat,sw_lng,ne_lat,ne_lng.
func (d *Deps) handleMapPOIs(c *gin.Context) {
	bounds := strings.Split(c.Query("bounds"), ",")
	if len(bounds) != 4 {
		respondError(c, apperr.New(apperr.CodeValidationError, "bounds must be sw_lat,sw_lng,ne_lat,ne_lng"))
		return
	}
	swLat, e1 := strconv.ParseFloat(bounds[0], 64)
	swLng, e2 := strconv.ParseFloat(bounds[1], 64)
	neLat, e3 := strconv.ParseFloat(bounds[2], 64)
	neLng, e4 := strconv.ParseFloat(bounds[3], 64)
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "bounds values must be numeric"))
		return
	}

	all, err := d.POIs.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var inBounds []models.POI
	for _, p := range all {
		if p.Lat >= swLat && p.Lat <= neLat && p.Lng >= swLng && p.Lng <= neLng {
			inBounds = append(inBounds, p)
		}
	}
	c.JSON(http.StatusOK, inBounds)
}

// handleMapLocation is POST /map/location.
func (d *Deps) handleMapLocation(c *gin.Context) {
	var report models.LocationReport
	if err := c.ShouldBindJSON(&report); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "invalid location report"))
		return
	}

	verification, err := d.Location.Verify(c.Request.Context(), playerIDFromContext(c), report)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": verification.Status, "flags": verification.Flags})
}

// ── capture ──────────────────────────────────────────────────────────

type captureRequestBody struct {
	TitanID        uuid.UUID `json:"titan_id" binding:"required"`
	PlayerLocation struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"player_location" binding:"required"`
}

// handleCaptureRequest is POST /capture/request (Stage A).
func (d *Deps) handleCaptureRequest(c *gin.Context) {
	var req captureRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "titan_id and player_location are required"))
		return
	}

	captureAuth, err := d.Capture.Authorize(c.Request.Context(), playerIDFromContext(c), req.TitanID, req.PlayerLocation.Lat, req.PlayerLocation.Lng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, captureAuth)
}

type buildTransactionBody struct {
	TitanID     uuid.UUID `json:"titan_id" binding:"required"`
	CaptureLat  float64   `json:"capture_lat"`
	CaptureLng  float64   `json:"capture_lng"`
}

// handleCaptureBuildTransaction is POST /capture/build-transaction (Stage B).
func (d *Deps) handleCaptureBuildTransaction(c *gin.Context) {
	var req buildTransactionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "titan_id is required"))
		return
	}

	player, err := d.Players.GetPlayer(c.Request.Context(), playerIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	tx, err := d.Capture.BuildTransaction(c.Request.Context(), player.WalletAddress, req.TitanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

type submitTransactionBody struct {
	SerializedTransaction string    `json:"serialized_transaction" binding:"required"`
	PlayerSignature       string    `json:"player_signature" binding:"required"`
	TitanID               uuid.UUID `json:"titan_id" binding:"required"`
	TitanPDA              string    `json:"titan_pda"`
	Token                 string    `json:"token" binding:"required"`
}

// handleCaptureSubmitTransaction is POST /capture/submit-transaction
// (Stages C and D): submits the co-signed transaction, then reconciles
// off-chain state as soon as the RPC node accepts the broadcast; it does
// not wait for chain confirmation.
func (d *Deps) handleCaptureSubmitTransaction(c *gin.Context) {
	var req submitTransactionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "serialized_transaction, player_signature, titan_id, and token are required"))
		return
	}

	playerID := playerIDFromContext(c)
	player, err := d.Players.GetPlayer(c.Request.Context(), playerID)
	if err != nil {
		respondError(c, err)
		return
	}

	submission := models.SignedSubmission{
		SerializedTxBase64: req.SerializedTransaction,
		PlayerSignature:    req.PlayerSignature,
		PlayerWallet:       player.WalletAddress,
		TitanID:            req.TitanID,
		TitanPDA:           req.TitanPDA,
	}

	txSignature, err := d.Capture.Submit(c.Request.Context(), submission, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := d.Capture.Reconcile(c.Request.Context(), playerID, req.TitanID, txSignature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ── pvp ──────────────────────────────────────────────────────────────

type joinQueueBody struct {
	TitanID uuid.UUID `json:"titan_id" binding:"required"`
}

// handlePvpQueue is POST /pvp/queue.
func (d *Deps) handlePvpQueue(c *gin.Context) {
	var req joinQueueBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "titan_id is required"))
		return
	}

	status, err := d.Pvp.JoinQueue(c.Request.Context(), playerIDFromContext(c), req.TitanID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// handlePvpMatchState is GET /pvp/match/:id.
func (d *Deps) handlePvpMatchState(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "invalid match id"))
		return
	}

	match, err := d.Pvp.GetMatchState(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

type pvpActionBody struct {
	MatchID uuid.UUID     `json:"match_id" binding:"required"`
	Action  models.Action `json:"action" binding:"required"`
}

// handlePvpAction is POST /pvp/action.
func (d *Deps) handlePvpAction(c *gin.Context) {
	var req pvpActionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidationError, "match_id and action are required"))
		return
	}

	match, err := d.Pvp.SubmitAction(c.Request.Context(), req.MatchID, playerIDFromContext(c), req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

// handleHealth is GET /health.
func (d *Deps) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
