package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data     interface{}            `json:"data,omitempty"`
	Error    *appErrors.Error       `json:"error,omitempty"`
	Flashes  []models.Flash         `json:"flashes,omitempty"`
	Redirect string                 `json:"redirect,omitempty"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Page sends a rendered page: its data plus the flash messages collected for it.
func Page(c *gin.Context, status int, data interface{}, flashes []models.Flash) {
	c.JSON(status, Envelope{Data: data, Flashes: flashes})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Redirect points the client at location. POST requests get 303 so the
// follow-up request is a GET; everything else gets 302.
func Redirect(c *gin.Context, location string) {
	status := http.StatusFound
	if c.Request.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	c.Header("Location", location)
	c.JSON(status, Envelope{Redirect: location})
}

// Attachment sends data as a file download.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	c.Data(http.StatusOK, contentType, data)
}
