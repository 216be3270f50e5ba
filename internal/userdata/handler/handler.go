package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/demonically2004/ziota/internal/apperrors"
	"github.com/demonically2004/ziota/internal/userdata"
	"github.com/demonically2004/ziota/internal/userdata/service"
	"github.com/demonically2004/ziota/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// MaxUploadBytes bounds a single multipart upload.
const MaxUploadBytes = 25 << 20

// RegisterUserDataRoutes mounts the user document and subject routes on rg,
// which must already run AuthMiddleware.
func RegisterUserDataRoutes(rg *gin.RouterGroup, svc service.Service) {
	rg.GET("/data", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		d, err := svc.GetUserData(c.Request.Context(), uid)
		if err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": d})
	})

	rg.PUT("/data", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		var p userdata.Patch
		if err := bindOptionalJSON(c, &p); err != nil {
			apperrors.Write(c, apperrors.Validation("Invalid request body"))
			return
		}
		if err := svc.UpdateUserData(c.Request.Context(), uid, p); err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User data updated successfully"})
	})

	rg.DELETE("/images", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		if err := svc.ClearImages(c.Request.Context(), uid); err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "All images deleted successfully"})
	})

	rg.POST("/images", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		withUpload(c, func(up userdata.Upload) {
			url, err := svc.AddImage(c.Request.Context(), uid, up)
			if err != nil {
				apperrors.Write(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"success": true, "url": url})
		})
	})

	listFiles := func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		files, err := svc.ListAllFiles(c.Request.Context(), uid)
		if err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": files})
	}
	rg.GET("/files", listFiles)
	rg.GET("/subject/files/all", listFiles)

	subj := rg.Group("/subject/:subjectId")

	subj.GET("", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		sd, err := svc.GetSubject(c.Request.Context(), uid, c.Param("subjectId"))
		if err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": sd})
	})

	subj.PUT("", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		var upd userdata.SubjectUpdate
		if err := bindOptionalJSON(c, &upd); err != nil {
			apperrors.Write(c, apperrors.Validation("Invalid request body"))
			return
		}
		if err := svc.PutSubject(c.Request.Context(), uid, c.Param("subjectId"), upd); err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subject data updated successfully"})
	})

	subj.POST("/files", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		withUpload(c, func(up userdata.Upload) {
			meta, err := svc.AttachSubjectFile(c.Request.Context(), uid, c.Param("subjectId"), up)
			if err != nil {
				apperrors.Write(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"success": true, "file": meta})
		})
	})

	subj.DELETE("/files/:fileId", func(c *gin.Context) {
		uid, ok := middleware.MustUserID(c)
		if !ok {
			return
		}
		if err := svc.DeleteSubjectFile(c.Request.Context(), uid, c.Param("subjectId"), c.Param("fileId")); err != nil {
			apperrors.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted successfully"})
	})
}

// bindOptionalJSON decodes the body into dst; an empty body leaves dst zero.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// withUpload opens the multipart "file" field and hands it to fn.
func withUpload(c *gin.Context, fn func(userdata.Upload)) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		apperrors.Write(c, apperrors.Validation("A file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperrors.Write(c, apperrors.Internal("Failed to read upload", err))
		return
	}
	defer f.Close()
	ct := fh.Header.Get("Content-Type")
	fn(userdata.Upload{Name: fh.Filename, ContentType: ct, Size: fh.Size, Body: f})
}
