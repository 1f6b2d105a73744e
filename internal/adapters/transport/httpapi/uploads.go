package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bnema/zalo-accounts/internal/adapters/campaign"
	"github.com/bnema/zalo-accounts/internal/application"
	"github.com/bnema/zalo-accounts/internal/domain"
)

type bulkUploadForm struct {
	AccountID string `form:"accountId" binding:"required"`
	Message   string `form:"message"`
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB<<20)
}

// sendMessageUpload sends text plus every file posted under "files".
func (s *Server) sendMessageUpload(c *gin.Context) {
	s.limitBody(c)

	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	attachments := make([]domain.Attachment, 0, len(form.File["files"]))
	for _, header := range form.File["files"] {
		data, err := readUpload(header)
		if err != nil {
			writeError(c, err)
			return
		}
		attachments = append(attachments, domain.Attachment{
			Filename: header.Filename,
			Data:     data,
			Metadata: s.inspector.Inspect(header.Filename, data),
		})
	}

	result, err := s.commands.SendMessage(c.Request.Context(), application.SendMessageCommand{
		AccountID:   domain.AccountID(req.AccountID),
		RecipientID: req.Recipient,
		ThreadType:  domain.ParseThreadType(req.RecipientType),
		Text:        req.MessageText,
		Attachments: attachments,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

// bulkUpload starts a bulk send from a campaign file posted under "file".
func (s *Server) bulkUpload(c *gin.Context) {
	s.limitBody(c)

	var form bulkUploadForm
	if err := bind(c, &form); err != nil {
		writeError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, fmt.Errorf("%w: campaign file is required", errBadRequest))
		return
	}
	data, err := readUpload(header)
	if err != nil {
		writeError(c, err)
		return
	}

	parsed, err := campaign.Parse(header.Filename, data, form.Message)
	if err != nil {
		if !domainError(err) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		writeError(c, err)
		return
	}

	result, err := s.commands.BulkSendCampaign(c.Request.Context(), domain.AccountID(form.AccountID), parsed)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusAccepted, result)
}

func domainError(err error) bool {
	return statusFor(err) != http.StatusInternalServerError
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}
	return data, nil
}
