package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/middleware"
	"wheeldeals/internal/models"
	"wheeldeals/internal/service"
)

// reportForm is the multipart body of a report submission. Photos are sent
// as repeated "photos" file parts with an optional "captions" value per photo
// in the same order.
type reportForm struct {
	PaintCondition    int      `form:"paintCondition"`
	BodyCondition     int      `form:"bodyCondition"`
	GlassWindows      int      `form:"glassWindows"`
	LightsSignals     int      `form:"lightsSignals"`
	TireCondition     int      `form:"tireCondition"`
	WheelCondition    int      `form:"wheelCondition"`
	EngineCondition   int      `form:"engineCondition"`
	Transmission      int      `form:"transmission"`
	Brakes            int      `form:"brakes"`
	Suspension        int      `form:"suspension"`
	InteriorCondition int      `form:"interiorCondition"`
	SeatsUpholstery   int      `form:"seatsUpholstery"`
	DashboardControls int      `form:"dashboardControls"`
	Electronics       int      `form:"electronics"`
	OverallComments   string   `form:"overallComments"`
	Captions          []string `form:"captions"`
}

func (f reportForm) ratings() models.Ratings {
	return models.RatingsFrom([models.RatingCount]int{
		f.PaintCondition, f.BodyCondition, f.GlassWindows, f.LightsSignals,
		f.TireCondition, f.WheelCondition, f.EngineCondition, f.Transmission,
		f.Brakes, f.Suspension, f.InteriorCondition, f.SeatsUpholstery,
		f.DashboardControls, f.Electronics,
	})
}

const maxFormMemory = 32 << 20

var errPhotoTooLarge = errors.New("photo exceeds the size limit")

func (h HandlerSet) SubmitReport(c *gin.Context) {
	maxPhoto := h.cfg.Storage.MaxPhotoBytes
	if maxPhoto <= 0 {
		maxPhoto = 10 << 20
	}
	maxPhotos := int64(max(h.cfg.Inspection.MaxPhotos, 1))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotos*maxPhoto+(1<<20))

	var form reportForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}

	var files []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		files = mf.File["photos"]
	}

	uploads := make([]service.PhotoUpload, 0, len(files))
	for i, fh := range files {
		data, err := readPart(fh, maxPhoto)
		if err != nil {
			if errors.Is(err, errPhotoTooLarge) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": fmt.Sprintf("photo %d exceeds %d bytes", i+1, maxPhoto)})
				return
			}
			h.respondError(c, err)
			return
		}
		up := service.PhotoUpload{Data: data, DeclaredType: fh.Header.Get("Content-Type")}
		if i < len(form.Captions) {
			up.Caption = form.Captions[i]
		}
		uploads = append(uploads, up)
	}

	report, err := h.reports.Submit(c.Request.Context(), middleware.Actor(c), c.Param("id"), service.ReportInput{
		Ratings:         form.ratings(),
		OverallComments: form.OverallComments,
		Photos:          uploads,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": toReport(report)})
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, errPhotoTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, errPhotoTooLarge
	}
	return data, nil
}

func (h HandlerSet) GetReport(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": toReport(report)})
}

// ReportPhoto redirects to a short lived download link for the photo.
func (h HandlerSet) ReportPhoto(c *gin.Context) {
	url, err := h.reports.PhotoURL(c.Request.Context(), middleware.Actor(c), c.Param("id"), c.Param("photoId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
