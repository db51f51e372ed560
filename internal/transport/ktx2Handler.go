package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
	"github.com/ds124wfegd/ktx2converter/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func (h *KTX2Handler) Convert(c *gin.Context) {
	body := c.Request.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodyBytes)
	}

	input, err := io.ReadAll(body)
	if err != nil {
		h.writeBodyError(c, &entity.BodyReadError{Err: err})
		return
	}

	jobID := c.GetString(middleware.RequestIDKey)
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := &entity.ConversionJob{
		ID:          jobID,
		Input:       input,
		Options:     ParseOptions(c),
		ContentType: c.GetHeader("Content-Type"),
		CreatedAt:   time.Now(),
	}

	ctx := c.Request.Context()
	if h.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.maxWait)
		defer cancel()
	}

	result, err := h.service.Convert(ctx, job)
	if err != nil {
		h.writeConvertError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", result.Output)
}

func (h *KTX2Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}

// ParseOptions reads compressor options from the query string. Quality must be an
// integer in [1,255] or it is dropped; flags are on only for the literal "1".
func ParseOptions(c *gin.Context) entity.Options {
	opts := entity.Options{
		FlipY:           c.Query("flipY") == "1",
		UseUASTC:        c.Query("uastc") == "1",
		GenerateMipmaps: c.Query("mipmaps") == "1",
	}
	if q, err := strconv.Atoi(c.Query("q")); err == nil && q >= entity.MinQuality && q <= entity.MaxQuality {
		opts.Quality = q
	}
	return opts
}

func (h *KTX2Handler) writeBodyError(c *gin.Context, err *entity.BodyReadError) {
	logrus.WithField("request_id", c.GetString(middleware.RequestIDKey)).WithError(err).Error("Error reading request body")

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, entity.ErrorResponse{Error: "Request body too large"})
		return
	}
	c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to read request body"})
}

func (h *KTX2Handler) writeConvertError(c *gin.Context, err error) {
	var (
		compErr *entity.CompressorError
		ioErr   *entity.IOError
	)

	switch entity.Classify(err) {
	case entity.OutcomeCompressorFailure:
		errors.As(err, &compErr)
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Compression failed", Details: compErr.Stderr})
	case entity.OutcomeSpawnFailure:
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to execute basisu binary"})
	case entity.OutcomeTimeout:
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Compression timed out"})
	case entity.OutcomeIOFailure:
		errors.As(err, &ioErr)
		if ioErr.Stage == entity.StageReadOutput {
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to read compressed file"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Internal server error"})
	case entity.OutcomeRejected:
		if errors.Is(err, entity.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, entity.ErrorResponse{Error: "Conversion queue is full"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, entity.ErrorResponse{Error: "Server is shutting down"})
	case entity.OutcomeAbandoned:
		if c.Request.Context().Err() != nil {
			// client is gone, nobody to answer
			c.Abort()
			return
		}
		c.JSON(http.StatusServiceUnavailable, entity.ErrorResponse{Error: "Timed out waiting for the compressor"})
	default:
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Internal server error"})
	}
}
