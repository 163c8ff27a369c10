package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/api/dto/request"
	"github.com/daniil11ru/livefleet/cli/receiver/api/dto/response"
	"github.com/daniil11ru/livefleet/cli/receiver/domain"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var now = time.Now

type Handler struct {
	SubmitPosition *domain.SubmitPosition
	GetPosition    *domain.GetPosition
	ListPositions  *domain.ListPositions
	ReportStats    *domain.ReportStats
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrUnknownDevice), errors.Is(err, types.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidCoordinates):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		log.WithField("err", err).Error("Ошибка обработки запроса")
	}
	c.JSON(status, response.Failure{Status: statusFailure, Code: types.Code(err), Error: err.Error()})
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	var req request.UpdateLocation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Failure{Status: statusFailure, Code: "invalid_input", Error: err.Error()})
		return
	}

	submission := domain.Submission{
		Device:    types.DeviceIdentity(req.MobileNo),
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if req.ObservedAt != nil {
		submission.ObservedAt = req.ObservedAt.UTC()
	}

	result, err := h.SubmitPosition.Run(c.Request.Context(), submission)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.UpdateLocation{
		Status:    string(result.Status),
		BusID:     string(result.VehicleID),
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
	})
}

func (h *Handler) GetLocation(c *gin.Context) {
	busID := c.Query("bus_id")
	if busID == "" {
		c.JSON(http.StatusBadRequest, response.Failure{Status: statusFailure, Code: "invalid_input", Error: "не задан bus_id"})
		return
	}

	record, err := h.GetPosition.Run(types.VehicleID(busID))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.GetLocation{Status: statusSuccess, Location: response.NewLocation(record)})
}

func (h *Handler) GetAllLocations(c *gin.Context) {
	records := h.ListPositions.Run()

	locations := make([]response.Location, 0, len(records))
	for _, rec := range records {
		locations = append(locations, response.NewLocation(rec))
	}

	c.JSON(http.StatusOK, locations)
}

func (h *Handler) GetGTFSRealtime(c *gin.Context) {
	feed := buildFeed(h.ListPositions.Run(), now())

	body, err := proto.Marshal(feed)
	if err != nil {
		fail(c, err)
		return
	}

	c.Data(http.StatusOK, "application/x-protobuf", body)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": h.ReportStats.Run()})
}
