package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kycportal/internal/middleware"
	"kycportal/internal/models"
	"kycportal/internal/repository"
	"kycportal/internal/service"
)

type KYCHandler interface {
	Submit(c *gin.Context)
	Status(c *gin.Context)
	All(c *gin.Context)
	Search(c *gin.Context)
	UpdateStatus(c *gin.Context)
	Statistics(c *gin.Context)
	Document(c *gin.Context)
	Delete(c *gin.Context)
}

type kycHandler struct {
	kycService  service.KYCService
	maxFileSize int64
	log         *logrus.Logger
}

func NewKYCHandler(kycService service.KYCService, maxFileSize int64, log *logrus.Logger) KYCHandler {
	return &kycHandler{kycService: kycService, maxFileSize: maxFileSize, log: log}
}

func (h *kycHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	fullName := c.PostForm("fullName")

	fileHeader, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Document file is required"})
		return
	}
	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("File size too large. Maximum size is %dMB", h.maxFileSize>>20)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Errorf("Failed to open uploaded file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read document"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.log.Errorf("Failed to read uploaded file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read document"})
		return
	}
	if int64(len(data)) > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("File size too large. Maximum size is %dMB", h.maxFileSize>>20)})
		return
	}

	kyc, err := h.kycService.Submit(claims.UserID, fullName, service.Upload{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFullNameRequired):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Full name is required"})
		case errors.Is(err, service.ErrDocumentRequired):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Document file is required"})
		case errors.Is(err, service.ErrInvalidFileType):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file type. Only JPG, PNG and PDF files are allowed."})
		case errors.Is(err, service.ErrFileTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("File size too large. Maximum size is %dMB", h.maxFileSize>>20)})
		case errors.Is(err, service.ErrDuplicateKYC):
			c.JSON(http.StatusConflict, gin.H{"message": "KYC already submitted"})
		default:
			h.log.Errorf("Failed to submit KYC: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error submitting KYC"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "KYC submitted successfully",
		"kyc":     kyc.View(),
	})
}

func (h *kycHandler) Status(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}

	kyc, err := h.kycService.StatusFor(claims.UserID)
	if err != nil {
		h.log.Errorf("Failed to fetch KYC status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching KYC status"})
		return
	}

	// No record is a valid answer, not an error: the client routes to the
	// submission page on null.
	if kyc == nil {
		c.JSON(http.StatusOK, gin.H{"kyc": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc": kyc.View()})
}

func (h *kycHandler) All(c *gin.Context) {
	kycs, err := h.kycService.List()
	if err != nil {
		h.log.Errorf("Failed to fetch KYCs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching KYCs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kycs": models.KYCViews(kycs)})
}

func (h *kycHandler) Search(c *gin.Context) {
	var filter repository.SearchFilter

	if status := c.Query("status"); status != "" {
		filter.Status = models.KYCStatus(status)
		if !filter.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
			return
		}
	}
	filter.Email = strings.TrimSpace(c.Query("email"))
	if date := c.Query("date"); date != "" {
		minDate, err := time.Parse("2006-01-02", date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		filter.MinCreatedAt = minDate
	}

	kycs, err := h.kycService.Search(filter)
	if err != nil {
		h.log.Errorf("Failed to search KYCs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error searching KYCs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kycs": models.KYCViews(kycs)})
}

type UpdateStatusRequest struct {
	Status     models.KYCStatus `json:"status" binding:"required"`
	AdminNotes string           `json:"adminNotes"`
}

func (h *kycHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid KYC id"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Status is required"})
		return
	}

	kyc, err := h.kycService.UpdateStatus(id, req.Status, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status"})
		case errors.Is(err, service.ErrNotesRequired):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Admin notes required for rejection"})
		case errors.Is(err, service.ErrKYCNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "KYC not found"})
		default:
			h.log.Errorf("Failed to update KYC status: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating KYC status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("KYC %s successfully", strings.ToLower(string(kyc.Status))),
		"kyc":     kyc.View(),
	})
}

func (h *kycHandler) Statistics(c *gin.Context) {
	stats, err := h.kycService.Statistics()
	if err != nil {
		h.log.Errorf("Failed to fetch statistics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *kycHandler) Document(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid KYC id"})
		return
	}

	data, contentType, err := h.kycService.Document(id, claims)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrKYCNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "KYC not found"})
		case errors.Is(err, service.ErrDocumentMissing):
			c.JSON(http.StatusNotFound, gin.H{"message": "Document file not found"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"message": "Access denied"})
		default:
			h.log.Errorf("Failed to fetch document: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching document"})
		}
		return
	}

	c.Header("Content-Disposition", "inline")
	c.Data(http.StatusOK, contentType, data)
}

func (h *kycHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid KYC id"})
		return
	}

	if err := h.kycService.Delete(id); err != nil {
		if errors.Is(err, service.ErrKYCNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "KYC not found"})
			return
		}
		h.log.Errorf("Failed to delete KYC: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting KYC"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "KYC deleted successfully"})
}
