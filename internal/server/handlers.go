package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"riskscan/internal/badge"
	"riskscan/internal/model"
)

func (s *Server) getRisk(c *gin.Context) {
	view, ok := s.renderOnce(c)
	if !ok {
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getBadgeHTML(c *gin.Context) {
	view, ok := s.renderOnce(c)
	if !ok {
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := badge.RenderHTML(&buf, view); err != nil {
		s.logger.Error("render badge html", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render_failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// renderOnce mounts a badge for the path token, renders it and unmounts it.
// With ?wait=<duration> a pending lookup is awaited, bounded by MaxWait.
// The mount takes no input, so a failure shows the retry control disabled;
// retrying is only possible on a websocket session.
func (s *Server) renderOnce(c *gin.Context) (*badge.View, bool) {
	token, err := tokenFromPath(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_token", "message": err.Error()})
		return nil, false
	}

	var wait time.Duration
	if raw := c.Query("wait"); raw != "" {
		wait, err = time.ParseDuration(raw)
		if err != nil || wait < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_wait"})
			return nil, false
		}
		wait = min(wait, s.cfg.MaxWait)
	}

	ctx := c.Request.Context()
	s.enrich(ctx, &token)

	b := badge.New(s.fetcher, s.prefs.For(userID(c)), s.translator(c), s.logger)
	defer b.Close()
	b.DisableRetry()
	b.SetToken(&token)

	view := b.Render()
	if view != nil && view.Kind == badge.KindScanning && wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		key, _ := model.KeyOf(&token)
		if _, err := s.fetcher.Load(waitCtx, key); err == nil {
			view = b.Render()
		}
	}
	return view, true
}

func (s *Server) enrich(ctx context.Context, token *model.Token) {
	if s.enricher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	s.enricher.Enrich(ctx, token)
}

func tokenFromPath(c *gin.Context) (model.Token, error) {
	chainID, err := model.ParseChainID(c.Param("chainId"))
	if err != nil {
		return model.Token{}, err
	}
	token, err := model.ParseToken(chainID, c.Param("address"))
	if err != nil {
		return model.Token{}, err
	}
	token.Symbol = c.Query("symbol")
	return token, nil
}

type preferenceBody struct {
	ShowRiskScanning *bool `json:"show_risk_scanning"`
}

func (s *Server) getPreferences(c *gin.Context) {
	user := c.Param("user")
	c.JSON(http.StatusOK, gin.H{
		"user":               user,
		"show_risk_scanning": s.prefs.ShowRiskScanning(c.Request.Context(), user),
	})
}

func (s *Server) putPreferences(c *gin.Context) {
	user := c.Param("user")

	var body preferenceBody
	if err := c.ShouldBindJSON(&body); err != nil || body.ShowRiskScanning == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "show_risk_scanning is required"})
		return
	}

	if err := s.prefs.SetShowRiskScanning(c.Request.Context(), user, *body.ShowRiskScanning); err != nil {
		s.logger.Error("save preference", zap.String("user", user), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":               user,
		"show_risk_scanning": *body.ShowRiskScanning,
	})
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func (s *Server) getHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "history_unavailable"})
		return
	}

	token, err := tokenFromPath(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_token", "message": err.Error()})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = min(limit, maxHistoryLimit)
	}

	key, _ := model.KeyOf(&token)
	records, err := s.history.LatestScans(c.Request.Context(), key, limit)
	if err != nil {
		s.logger.Error("load scan history", zap.String("address", key.Address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_failed"})
		return
	}
	if records == nil {
		records = []model.ScanRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"chain_id": key.ChainID,
		"address":  key.Address,
		"scans":    records,
	})
}
