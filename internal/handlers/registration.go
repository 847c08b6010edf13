package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/auth"
	"github.com/incridea/fest-backend/internal/services"
)

// POST /api/registration/solo {eventId}
func RegisterSolo(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			EventID string `json:"eventId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
			return
		}
		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad eventId"})
			return
		}
		team, err := svc.RegisterSolo(c.Request.Context(), auth.UserID(c), eventID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// POST /api/registration/create-team {eventId,name}
func CreateTeam(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			EventID string `json:"eventId"`
			Name    string `json:"name"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
			return
		}
		eventID, err := uuid.Parse(req.EventID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad eventId"})
			return
		}
		team, err := svc.CreateTeam(c.Request.Context(), auth.UserID(c), eventID, req.Name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// POST /api/registration/join-team {teamId}
func JoinTeam(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := teamIDFromBody(c)
		if !ok {
			return
		}
		team, err := svc.JoinTeam(c.Request.Context(), auth.UserID(c), teamID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// POST /api/registration/confirm-team {teamId}
func ConfirmTeam(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := teamIDFromBody(c)
		if !ok {
			return
		}
		team, err := svc.ConfirmTeam(c.Request.Context(), auth.UserID(c), teamID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// POST /api/registration/leave-team {teamId}
func LeaveTeam(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := teamIDFromBody(c)
		if !ok {
			return
		}
		if err := svc.LeaveTeam(c.Request.Context(), auth.UserID(c), teamID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// POST /api/registration/delete-team {teamId}
func DeleteTeam(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := teamIDFromBody(c)
		if !ok {
			return
		}
		if err := svc.DeleteTeam(c.Request.Context(), auth.UserID(c), teamID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GET /api/registration/my-team/:eventId
func MyTeam(svc *services.RegistrationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("eventId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad eventId"})
			return
		}
		out, err := svc.MyTeam(c.Request.Context(), auth.UserID(c), eventID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func teamIDFromBody(c *gin.Context) (uuid.UUID, bool) {
	var req struct {
		TeamID string `json:"teamId"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return uuid.Nil, false
	}
	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad teamId"})
		return uuid.Nil, false
	}
	return teamID, true
}
