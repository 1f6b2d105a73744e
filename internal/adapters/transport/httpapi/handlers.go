package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bnema/zalo-accounts/internal/application"
	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/version"
)

type accountQuery struct {
	AccountID string `form:"accountId" binding:"required"`
}

type identifierQuery struct {
	AccountID  string `form:"accountId" binding:"required"`
	Identifier string `form:"identifier" binding:"required,zaloid"`
}

type groupMembersQuery struct {
	AccountID string `form:"accountId" binding:"required"`
	GroupLink string `form:"groupLink" binding:"required_without=GroupID"`
	GroupID   string `form:"groupId" binding:"required_without=GroupLink"`
}

type sendMessageRequest struct {
	AccountID     string `json:"accountId" form:"accountId" binding:"required"`
	Recipient     string `json:"recipientIdentifier" form:"recipientIdentifier" binding:"required,zaloid"`
	RecipientType string `json:"recipientType" form:"recipientType"`
	MessageText   string `json:"messageText" form:"messageText"`
}

type friendRequestRequest struct {
	AccountID        string `json:"accountId" binding:"required"`
	TargetIdentifier string `json:"targetIdentifier" binding:"required,zaloid"`
	Message          string `json:"message"`
}

type friendUserRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	UserID    string `json:"userId" binding:"required,zaloid"`
}

type createGroupRequest struct {
	AccountID string   `json:"accountId" binding:"required"`
	GroupName string   `json:"groupName" binding:"required"`
	Members   []string `json:"members" binding:"required,min=1,dive,zaloid"`
}

type joinGroupRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	GroupLink string `json:"groupLink" binding:"required"`
}

type bulkSendRequest struct {
	AccountID string   `json:"accountId" binding:"required"`
	Targets   []string `json:"targets" binding:"required,min=1"`
	Message   string   `json:"message" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	writeData(c, http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.commands.ListActiveAccounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, accounts)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.logins.Logout(c.Request.Context(), domain.AccountID(c.Param("accountId"))); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) initiateLogin(c *gin.Context) {
	origin := c.Query("origin")
	if origin == "" {
		origin = "http:" + c.ClientIP()
	}

	tempID, err := s.logins.InitiateLogin(c.Request.Context(), origin)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, gin.H{"tempId": tempID, "qrCodeUrl": qrCodeURL(tempID)})
}

func qrCodeURL(tempID string) string {
	return "/api/qr-code/" + tempID + ".png"
}

func (s *Server) qrCode(c *gin.Context) {
	tempID, ok := strings.CutSuffix(c.Param("file"), ".png")
	if !ok || tempID == "" {
		writeError(c, fmt.Errorf("qr code %q: %w", c.Param("file"), domain.ErrLoginSessionNotFound))
		return
	}

	image, err := s.logins.QRCode(c.Request.Context(), tempID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", image)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.commands.SendMessage(c.Request.Context(), application.SendMessageCommand{
		AccountID:   domain.AccountID(req.AccountID),
		RecipientID: req.Recipient,
		ThreadType:  domain.ParseThreadType(req.RecipientType),
		Text:        req.MessageText,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) lookupUser(c *gin.Context) {
	var q identifierQuery
	if err := bind(c, &q); err != nil {
		writeError(c, err)
		return
	}

	user, err := s.commands.FindUserByIdentifier(c.Request.Context(), domain.AccountID(q.AccountID), q.Identifier)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, user)
}

func (s *Server) userProfile(c *gin.Context) {
	var q identifierQuery
	if err := bind(c, &q); err != nil {
		writeError(c, err)
		return
	}

	profile, err := s.commands.GetUserProfile(c.Request.Context(), domain.AccountID(q.AccountID), q.Identifier)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, profile)
}

func (s *Server) sendFriendRequest(c *gin.Context) {
	var req friendRequestRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	userID, err := s.commands.SendFriendRequest(c.Request.Context(), application.SendFriendRequestCommand{
		AccountID:  domain.AccountID(req.AccountID),
		Identifier: req.TargetIdentifier,
		Message:    req.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"userId": userID})
}

func (s *Server) acceptFriendRequest(c *gin.Context) {
	var req friendUserRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	if err := s.commands.AcceptFriendRequest(c.Request.Context(), domain.AccountID(req.AccountID), req.UserID); err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"userId": req.UserID})
}

func (s *Server) unfriend(c *gin.Context) {
	var req friendUserRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	if err := s.commands.Unfriend(c.Request.Context(), domain.AccountID(req.AccountID), req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listFriends(c *gin.Context) {
	friends, err := s.commands.ListFriends(c.Request.Context(), domain.AccountID(c.Param("accountId")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, friends)
}

func (s *Server) friendSuggestions(c *gin.Context) {
	result, err := s.commands.CollectFriendSuggestionsAndRequests(c.Request.Context(), domain.AccountID(c.Param("accountId")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) listGroups(c *gin.Context) {
	groups, err := s.commands.ListGroups(c.Request.Context(), domain.AccountID(c.Param("accountId")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, groups)
}

func (s *Server) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.commands.CreateGroup(c.Request.Context(), application.CreateGroupCommand{
		AccountID:   domain.AccountID(req.AccountID),
		Name:        req.GroupName,
		Identifiers: req.Members,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, result)
}

func (s *Server) groupMembers(c *gin.Context) {
	var q groupMembersQuery
	if err := bind(c, &q); err != nil {
		writeError(c, err)
		return
	}

	ref := q.GroupLink
	if ref == "" {
		ref = q.GroupID
	}
	members, err := s.commands.CollectGroupMembers(c.Request.Context(), domain.AccountID(q.AccountID), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, members)
}

func (s *Server) joinGroup(c *gin.Context) {
	var req joinGroupRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.commands.JoinGroup(c.Request.Context(), domain.AccountID(req.AccountID), req.GroupLink)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) bulkSend(c *gin.Context) {
	var req bulkSendRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.commands.BulkSend(c.Request.Context(), application.BulkSendCommand{
		AccountID: domain.AccountID(req.AccountID),
		TargetIDs: req.Targets,
		Text:      req.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, result)
}

func (s *Server) job(c *gin.Context) {
	job, err := s.commands.Job(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, job)
}
